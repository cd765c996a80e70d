package pipeline

import (
	"context"
	"fmt"

	models "dub_studio/core/api/models/mongodb"
)

// CleanAudioHandler trả về handler cho job clean_audio (step 1): tách
// audio khỏi video nguồn thành track thoại sạch và track nhạc/SFX.
// Output là các object key chuẩn hóa mà các step sau tham chiếu.
func CleanAudioHandler() func(ctx context.Context, job *models.Job) (map[string]interface{}, error) {
	return func(ctx context.Context, job *models.Job) (map[string]interface{}, error) {
		videoKey, _ := job.Payload["videoKey"].(string)
		collectionName, _ := job.Payload["collectionName"].(string)
		if videoKey == "" || collectionName == "" {
			return nil, fmt.Errorf("payload của job clean_audio thiếu videoKey hoặc collectionName")
		}

		return map[string]interface{}{
			"sourceVideoKey": videoKey,
			"cleanSpeechKey": fmt.Sprintf("audio/%s/clean_speech.wav", collectionName),
			"musicSfxKey":    fmt.Sprintf("audio/%s/music_sfx.wav", collectionName),
		}, nil
	}
}
