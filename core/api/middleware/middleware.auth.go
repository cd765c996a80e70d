package middleware

import (
	"fmt"
	"strings"

	"dub_studio/core/common"
	"dub_studio/core/global"
	"dub_studio/core/logger"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// Claims là payload JWT của hệ thống.
// Token chỉ mang thông tin định danh (username) và bản chiếu phân quyền theo
// project tại thời điểm phát hành. Nguồn chân lý của phân quyền vẫn là danh
// sách assignments trong Project document - service layer kiểm tra lại ở đó.
type Claims struct {
	Username     string            `json:"username"`
	ProjectRoles map[string]string `json:"projectRoles,omitempty"` // slug -> role, chỉ để client hiển thị
	jwt.StandardClaims
}

// AuthMiddleware middleware xác thực JWT cho Fiber.
// Chỉ trả lời câu hỏi "request này của ai" - quyền trên từng project do
// service layer quyết định dựa trên assignments của Project.
func AuthMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Lấy token từ header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			// Chỉ log khi thiếu token (lỗi quan trọng)
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path":   c.Path(),
				"method": c.Method(),
			}).Warn("❌ [AUTH] Missing Authorization header")
			HandleErrorResponse(c, common.ErrTokenMissing)
			return nil
		}

		// Kiểm tra định dạng token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("phương thức ký không được hỗ trợ: %v", t.Header["alg"])
			}
			return []byte(global.MongoDB_ServerConfig.JwtSecret), nil
		})
		if err != nil || !token.Valid {
			logger.GetAppLogger().WithFields(logrus.Fields{
				"path": c.Path(),
			}).Warn("❌ [AUTH] Token không hợp lệ hoặc đã hết hạn")
			HandleErrorResponse(c, common.ErrTokenInvalid)
			return nil
		}

		if claims.Username == "" {
			HandleErrorResponse(c, common.NewError(
				common.ErrCodeAuthToken,
				"Token không chứa username",
				common.StatusUnauthorized,
				nil,
			))
			return nil
		}

		// Lưu thông tin actor vào context cho các handler phía sau
		c.Locals("username", claims.Username)
		c.Locals("project_roles", claims.ProjectRoles)

		return c.Next()
	}
}

// GetUsername lấy username của actor đã xác thực từ context.
// Trả về chuỗi rỗng nếu request chưa đi qua AuthMiddleware.
func GetUsername(c fiber.Ctx) string {
	if username, ok := c.Locals("username").(string); ok {
		return username
	}
	return ""
}
