package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"dymgr/internal/dispatch"
)

// DouyinService wraps the /douyin endpoints.
type DouyinService struct {
	d Dispatcher
}

// Videos lists the videos on the linked Douyin account.
func (s *DouyinService) Videos(ctx context.Context) (*Document, error) {
	var out Document
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodGet, Path: "/douyin/videos"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Publish starts publishing a local video to Douyin.
func (s *DouyinService) Publish(ctx context.Context, videoID int64) (*PublishTask, error) {
	var out PublishTask
	path := fmt.Sprintf("/douyin/publish/%d", videoID)
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodPost, Path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublishStatus reports the upstream state of a publish task.
func (s *DouyinService) PublishStatus(ctx context.Context, taskID string) (*Document, error) {
	var out Document
	path := "/douyin/publish/status/" + url.PathEscape(taskID)
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodGet, Path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
