package router

import (
	"dub_studio/core/api/handler"
	"dub_studio/core/api/middleware"
	"dub_studio/core/api/services"
	"dub_studio/core/pipeline"
	"dub_studio/core/storage"
	"fmt"

	"github.com/gofiber/fiber/v3"
)

// ============================================================================
// ⚠️ QUAN TRỌNG: BUG FIBER V3 - CÁCH ĐĂNG KÝ MIDDLEWARE
// ============================================================================
//
// Fiber v3 có BUG nghiêm trọng với cách đăng ký middleware trực tiếp trong route.
// Middleware sẽ KHÔNG được gọi nếu dùng cách trực tiếp!
//
// ❌ CÁCH SAI (KHÔNG HOẠT ĐỘNG):
//    router.Get("/path", middleware.AuthMiddleware(), handler)
//    router.Post("/path", middleware.AuthMiddleware(), handler)
//    → Middleware sẽ KHÔNG được gọi, request sẽ bỏ qua middleware!
//
// ✅ CÁCH ĐÚNG (PHẢI DÙNG):
//    authMiddleware := middleware.AuthMiddleware()
//    registerRouteWithMiddleware(router, "/prefix", "GET", "/path", []fiber.Handler{authMiddleware}, handler)
//    → Middleware sẽ được gọi đúng cách thông qua .Use() method
//
// 🔍 KIỂM TRA:
//    Nếu thấy route nào dùng cách trực tiếp router.Get/Post/Put/Delete(path, middleware, handler)
//    → PHẢI SỬA NGAY thành registerRouteWithMiddleware!
//
// ============================================================================

// ReadHandler định nghĩa interface cho các handler đọc dữ liệu chung
type ReadHandler interface {
	Find(c fiber.Ctx) error
	FindOne(c fiber.Ctx) error
	FindOneById(c fiber.Ctx) error
	FindWithPagination(c fiber.Ctx) error
	CountDocuments(c fiber.Ctx) error
}

// Router quản lý việc định tuyến cho API
type Router struct {
	app *fiber.App
}

// ReadConfig cấu hình các operation đọc được phép cho mỗi collection
type ReadConfig struct {
	Find     bool // Find All
	FindOne  bool // Find One
	FindById bool // Find By Id
	Paginate bool // Find With Pagination
	Count    bool // Count Documents
}

// Config cho từng collection
var (
	fullReadConfig = ReadConfig{
		Find: true, FindOne: true, FindById: true,
		Paginate: true, Count: true,
	}

	projectConfig = fullReadConfig
)

// RoutePrefix chứa các prefix cơ bản cho API
type RoutePrefix struct {
	Base string // Prefix cơ bản (/api)
	V1   string // Prefix cho API version 1 (/api/v1)
}

// NewRoutePrefix tạo mới một instance của RoutePrefix với các giá trị mặc định
func NewRoutePrefix() RoutePrefix {
	base := "/api"
	return RoutePrefix{
		Base: base,
		V1:   base + "/v1",
	}
}

// NewRouter tạo mới một instance của Router
func NewRouter(app *fiber.App) *Router {
	return &Router{
		app: app,
	}
}

// Dependencies gom các thành phần đã khởi tạo sẵn mà router cần để tạo handler.
// Server khởi tạo services/orchestrator/coordinator một lần trong init rồi
// truyền vào đây - handler không tự mở kết nối.
type Dependencies struct {
	ProjectService  *services.ProjectService
	EpisodeService  *services.EpisodeService
	DialogueService *services.DialogueService
	JobService      *services.JobService
	Orchestrator    *pipeline.Orchestrator
	Uploads         *storage.Coordinator
}

// registerRouteWithMiddleware đăng ký route với middleware sử dụng .Use() method (cách đúng theo Fiber v3)
//
// ⚠️ QUAN TRỌNG: Đây là CÁCH DUY NHẤT hoạt động đúng trong Fiber v3!
//
// ❌ KHÔNG DÙNG cách trực tiếp: router.Get(path, middleware, handler) - middleware sẽ KHÔNG được gọi!
// ✅ PHẢI DÙNG cách này: registerRouteWithMiddleware với .Use() method
//
// Ví dụ sử dụng:
//
//	authMiddleware := middleware.AuthMiddleware()
//	registerRouteWithMiddleware(router, "/projects", "GET", "/find", []fiber.Handler{authMiddleware}, handler)
func registerRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	// Tạo group với prefix, middleware sẽ chỉ áp dụng cho routes trong group này
	routeGroup := router.Group(prefix)
	for _, mw := range middlewares {
		routeGroup.Use(mw) // ← ĐÂY LÀ CÁCH ĐÚNG - dùng .Use() thay vì truyền trực tiếp
	}

	// Đăng ký route với path tương đối (không có prefix vì đã có trong group)
	switch method {
	case "GET":
		routeGroup.Get(path, handler)
	case "POST":
		routeGroup.Post(path, handler)
	case "PUT":
		routeGroup.Put(path, handler)
	case "PATCH":
		routeGroup.Patch(path, handler)
	case "DELETE":
		routeGroup.Delete(path, handler)
	}
}

// registerReadRoutes đăng ký các route đọc chung cho một collection
//
// ⚠️ LƯU Ý: Hàm này đã dùng registerRouteWithMiddleware (cách đúng), không cần sửa.
// Nếu thêm route mới bên ngoài hàm này, PHẢI dùng registerRouteWithMiddleware (xem comment ở đầu file)
func (r *Router) registerReadRoutes(router fiber.Router, prefix string, h ReadHandler, config ReadConfig) {
	authMiddleware := middleware.AuthMiddleware()

	if config.Find {
		registerRouteWithMiddleware(router, prefix, "GET", "/find", []fiber.Handler{authMiddleware}, h.Find)
	}
	if config.FindOne {
		registerRouteWithMiddleware(router, prefix, "GET", "/find-one", []fiber.Handler{authMiddleware}, h.FindOne)
	}
	if config.FindById {
		registerRouteWithMiddleware(router, prefix, "GET", "/find-by-id/:id", []fiber.Handler{authMiddleware}, h.FindOneById)
	}
	if config.Paginate {
		registerRouteWithMiddleware(router, prefix, "GET", "/find-with-pagination", []fiber.Handler{authMiddleware}, h.FindWithPagination)
	}
	if config.Count {
		registerRouteWithMiddleware(router, prefix, "GET", "/count", []fiber.Handler{authMiddleware}, h.CountDocuments)
	}
}

// CÁC HÀM ĐĂNG KÝ ROUTES

// registerSystemRoutes đăng ký các route cho system operations
func registerSystemRoutes(router fiber.Router) error {
	// Khởi tạo SystemHandler
	systemHandler, err := handler.NewSystemHandler()
	if err != nil {
		return fmt.Errorf("failed to create system handler: %v", err)
	}

	// System routes (public, không cần auth)
	router.Get("/system/health", systemHandler.HandleHealth)

	return nil
}

// registerProjectRoutes đăng ký các route cho quản lý project
//
// ⚠️ LƯU Ý: Tất cả routes ở đây PHẢI dùng registerRouteWithMiddleware (xem comment ở đầu file)
func (r *Router) registerProjectRoutes(router fiber.Router, deps Dependencies) error {
	projectHandler := handler.NewProjectHandler(deps.ProjectService, deps.EpisodeService, deps.Uploads)

	authMiddleware := middleware.AuthMiddleware()

	// Route đặc biệt: tạo project từ multipart form (metadata + N file video)
	registerRouteWithMiddleware(router, "/projects", "POST", "", []fiber.Handler{authMiddleware}, projectHandler.HandleCreateProject)

	// Route đặc biệt: xóa project cascade (drop database tenant + xóa video objects)
	registerRouteWithMiddleware(router, "/projects", "DELETE", "/:id", []fiber.Handler{authMiddleware}, projectHandler.HandleDeleteProject)

	// Read routes chung
	r.registerReadRoutes(router, "/projects", projectHandler, projectConfig)

	return nil
}

// registerEpisodeRoutes đăng ký các route cho episode và pipeline 5 step
//
// ⚠️ LƯU Ý: Tất cả routes ở đây PHẢI dùng registerRouteWithMiddleware (xem comment ở đầu file)
func (r *Router) registerEpisodeRoutes(router fiber.Router, deps Dependencies) error {
	episodeHandler := handler.NewEpisodeHandler(deps.ProjectService, deps.EpisodeService, deps.DialogueService, deps.Orchestrator)

	authMiddleware := middleware.AuthMiddleware()

	// Episode nằm trong database tenant nên mọi route đều cần query param projectId
	registerRouteWithMiddleware(router, "/episodes", "GET", "", []fiber.Handler{authMiddleware}, episodeHandler.HandleListEpisodes)
	registerRouteWithMiddleware(router, "/episodes", "GET", "/:id", []fiber.Handler{authMiddleware}, episodeHandler.HandleGetEpisode)
	registerRouteWithMiddleware(router, "/episodes", "DELETE", "/:id", []fiber.Handler{authMiddleware}, episodeHandler.HandleDeleteEpisode)

	// Route đặc biệt: chạy step pipeline (step 1 bất đồng bộ qua queue, 2-5 đồng bộ)
	registerRouteWithMiddleware(router, "/episodes", "POST", "/:id/steps/:step", []fiber.Handler{authMiddleware}, episodeHandler.HandleRunStep)

	// Route đặc biệt: gán giọng thủ công (override step 5)
	registerRouteWithMiddleware(router, "/episodes", "POST", "/:id/voice-assignments", []fiber.Handler{authMiddleware}, episodeHandler.HandleVoiceAssignments)

	// Route đặc biệt: seed scene documents từ kịch bản đã bóc tách
	// (dialogue number do server cấp, upsert theo sceneNumber)
	registerRouteWithMiddleware(router, "/episodes", "POST", "/:id/scenes", []fiber.Handler{authMiddleware}, episodeHandler.HandleSeedScenes)

	return nil
}

// registerDialogueRoutes đăng ký các route cho vòng review dialogue
//
// ⚠️ LƯU Ý: Tất cả routes ở đây PHẢI dùng registerRouteWithMiddleware (xem comment ở đầu file)
func (r *Router) registerDialogueRoutes(router fiber.Router, deps Dependencies) error {
	dialogueHandler := handler.NewDialogueHandler(deps.ProjectService, deps.DialogueService)

	authMiddleware := middleware.AuthMiddleware()

	// Route đặc biệt: áp patch review lên dialogue (action suy ra từ tập field)
	registerRouteWithMiddleware(router, "/dialogues", "PATCH", "/update/:dialogueNumber", []fiber.Handler{authMiddleware}, dialogueHandler.HandleUpdateDialogue)

	// Route đặc biệt: gỡ voice-over khỏi dialogue (regression có chủ đích)
	registerRouteWithMiddleware(router, "/dialogues", "DELETE", "/remove-voice/:dialogueNumber", []fiber.Handler{authMiddleware}, dialogueHandler.HandleRemoveVoice)

	return nil
}

// registerUploadRoutes đăng ký các route cho upload video nhiều part
//
// ⚠️ LƯU Ý: Tất cả routes ở đây PHẢI dùng registerRouteWithMiddleware (xem comment ở đầu file)
func (r *Router) registerUploadRoutes(router fiber.Router, deps Dependencies) error {
	uploadHandler := handler.NewUploadHandler(deps.Uploads)

	authMiddleware := middleware.AuthMiddleware()

	registerRouteWithMiddleware(router, "/uploads", "POST", "/init", []fiber.Handler{authMiddleware}, uploadHandler.HandleInit)
	registerRouteWithMiddleware(router, "/uploads", "POST", "/chunk", []fiber.Handler{authMiddleware}, uploadHandler.HandleChunk)
	registerRouteWithMiddleware(router, "/uploads", "POST", "/complete", []fiber.Handler{authMiddleware}, uploadHandler.HandleComplete)
	registerRouteWithMiddleware(router, "/uploads", "DELETE", "/abort", []fiber.Handler{authMiddleware}, uploadHandler.HandleAbort)

	return nil
}

// registerQueueRoutes đăng ký các route tra cứu job queue
//
// ⚠️ LƯU Ý: Tất cả routes ở đây PHẢI dùng registerRouteWithMiddleware (xem comment ở đầu file)
func (r *Router) registerQueueRoutes(router fiber.Router, deps Dependencies) error {
	jobHandler := handler.NewJobHandler(deps.JobService)

	authMiddleware := middleware.AuthMiddleware()

	registerRouteWithMiddleware(router, "/queue", "GET", "/jobs/:jobId", []fiber.Handler{authMiddleware}, jobHandler.HandleGetJob)

	return nil
}

// SetupRoutes thiết lập tất cả các route cho ứng dụng
func SetupRoutes(app *fiber.App, deps Dependencies) error {
	// Khởi tạo route prefix
	prefix := NewRoutePrefix()
	v1 := app.Group(prefix.V1)

	// Khởi tạo router
	router := NewRouter(app)

	// Liveness probe ở root, không đi qua auth lẫn rate limiter
	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 1. System Routes
	if err := registerSystemRoutes(v1); err != nil {
		return fmt.Errorf("failed to register system routes: %v", err)
	}

	// 2. Project Routes
	if err := router.registerProjectRoutes(v1, deps); err != nil {
		return fmt.Errorf("failed to register project routes: %v", err)
	}

	// 3. Episode Routes
	if err := router.registerEpisodeRoutes(v1, deps); err != nil {
		return fmt.Errorf("failed to register episode routes: %v", err)
	}

	// 4. Dialogue Routes
	if err := router.registerDialogueRoutes(v1, deps); err != nil {
		return fmt.Errorf("failed to register dialogue routes: %v", err)
	}

	// 5. Upload Routes
	if err := router.registerUploadRoutes(v1, deps); err != nil {
		return fmt.Errorf("failed to register upload routes: %v", err)
	}

	// 6. Queue Routes
	if err := router.registerQueueRoutes(v1, deps); err != nil {
		return fmt.Errorf("failed to register queue routes: %v", err)
	}

	return nil
}
