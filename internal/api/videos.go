package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"dymgr/internal/dispatch"
)

// DefaultListLimit matches the backend page size.
const DefaultListLimit = 20

// VideoService wraps the /videos endpoints.
type VideoService struct {
	d Dispatcher
}

// ListOptions pages through the caller's videos.
type ListOptions struct {
	Skip  int
	Limit int
}

func (o ListOptions) query() url.Values {
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	skip := o.Skip
	if skip < 0 {
		skip = 0
	}
	return url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
	}
}

// Upload describes a video file to upload.
type Upload struct {
	Title       string
	Description string
	Filename    string
	Content     io.Reader
}

func videoPath(id int64) string {
	return fmt.Sprintf("/videos/%d", id)
}

// List returns one page of the caller's videos.
func (s *VideoService) List(ctx context.Context, opts ListOptions) ([]Video, error) {
	var out []Video
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodGet, Path: "/videos", Query: opts.query()}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload streams a video file as multipart/form-data.
func (s *VideoService) Upload(ctx context.Context, upload Upload) (*UploadedVideo, error) {
	payload := &dispatch.Multipart{
		Fields: []dispatch.Field{
			{Name: "title", Value: upload.Title},
			{Name: "description", Value: upload.Description},
		},
		Files: []dispatch.File{
			{Field: "file", Filename: upload.Filename, Content: upload.Content},
		},
	}
	var out UploadedVideo
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodPost, Path: "/videos/upload", Multipart: payload}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns a single video.
func (s *VideoService) Get(ctx context.Context, id int64) (*Video, error) {
	var out Video
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodGet, Path: videoPath(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update changes a video's title and/or description. The backend reads the
// fields from a form body.
func (s *VideoService) Update(ctx context.Context, id int64, update VideoUpdate) (*UpdatedVideo, error) {
	form := url.Values{}
	if update.Title != nil {
		form.Set("title", *update.Title)
	}
	if update.Description != nil {
		form.Set("description", *update.Description)
	}
	var out UpdatedVideo
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodPut, Path: videoPath(id), Form: form}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a video.
func (s *VideoService) Delete(ctx context.Context, id int64) (*Message, error) {
	var out Message
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodDelete, Path: videoPath(id)}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
