package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/config"
	"github.com/hieplh/ata-sample-webapp/pkg/metrics"
)

const basePath = "/service/face_recognize"

// ErrNotIdentified 识别结果与期望身份不一致
var ErrNotIdentified = errors.New("face identification is incorrect")

// StatusError 非 2xx 响应
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("identity service responded %d: %s", e.Code, e.Body)
}

// File 上传的图片
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImageUpdate 更新已登记图片
type ImageUpdate struct {
	ImageOldID *uint  `json:"image_old_id"`
	ImageName  string `json:"image_new_name"`
	Image      string `json:"image_new"` // base64
}

// Client 人脸识别服务 HTTP 客户端
type Client struct {
	host    string
	token   string
	http    *http.Client
	backoff func() retry.Backoff
	logger  *zap.Logger
}

// NewClient 创建客户端；所有操作共用同一重试策略，4xx 不重试
func NewClient(cfg *config.IdentityConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	interval := cfg.RetryBackoff
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	maxRetries := cfg.MaxRetries

	return &Client{
		host:  strings.TrimRight(cfg.Host, "/"),
		token: cfg.Token,
		http:  &http.Client{Timeout: timeout},
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewConstant(interval))
		},
		logger: logger,
	}
}

// ── 登记 ──

// Register 登记用户人脸，subject 为不含密码的用户快照
func (c *Client) Register(ctx context.Context, identificationID string, subject interface{}, files []File) error {
	if len(files) == 0 {
		return nil
	}
	content, err := json.Marshal(subject)
	if err != nil {
		return fmt.Errorf("序列化用户信息失败: %w", err)
	}

	return c.do(ctx, "register", func() (*http.Request, error) {
		body, contentType, err := multipartBody(map[string]string{
			"identification_id": identificationID,
			"content":           string(content),
		}, "files", files)
		if err != nil {
			return nil, err
		}
		req, err := c.newRequest(ctx, http.MethodPost, basePath+"/register", body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	}, nil)
}

// Update 更新已登记的图片
func (c *Client) Update(ctx context.Context, identificationID string, images []ImageUpdate) error {
	if len(images) == 0 {
		return nil
	}
	payload, err := json.Marshal(map[string]interface{}{
		"identification_id": identificationID,
		"images":            images,
	})
	if err != nil {
		return err
	}

	return c.do(ctx, "update", func() (*http.Request, error) {
		req, err := c.newRequest(ctx, http.MethodPut, basePath+"/update", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, nil)
}

// Identify 识别人脸，返回服务端识别出的 identification_id
func (c *Client) Identify(ctx context.Context, identificationID string, image File) (string, error) {
	var out struct {
		IdentificationID string `json:"identification_id"`
	}
	err := c.do(ctx, "identify", func() (*http.Request, error) {
		body, contentType, err := multipartBody(map[string]string{
			"identification_id": identificationID,
		}, "image", []File{image})
		if err != nil {
			return nil, err
		}
		req, err := c.newRequest(ctx, http.MethodPost, basePath+"/identify", body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	}, &out)
	if err != nil {
		return "", err
	}
	return out.IdentificationID, nil
}

// Verify 识别并校验是否为 identificationID 本人
func (c *Client) Verify(ctx context.Context, identificationID string, image File) error {
	got, err := c.Identify(ctx, identificationID, image)
	if err != nil {
		return err
	}
	if got != identificationID {
		return ErrNotIdentified
	}
	return nil
}

// Delete 删除登记信息
func (c *Client) Delete(ctx context.Context, identificationID string) error {
	return c.do(ctx, "delete", func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodDelete, basePath+"/"+url.PathEscape(identificationID), nil)
	}, nil)
}

// ListImages 查询已登记图片
func (c *Client) ListImages(ctx context.Context, identificationID string) ([]map[string]interface{}, error) {
	var out []map[string]interface{}
	err := c.do(ctx, "list_images", func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, basePath+"/images/"+url.PathEscape(identificationID), nil)
	}, &out)
	return out, err
}

// ── 内部 ──

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.host+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

// do 执行请求；build 每次重试重新构建请求体
func (c *Client) do(ctx context.Context, op string, build func() (*http.Request, error), out interface{}) error {
	attempt := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		req, err := build()
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			metrics.IdentityCallsTotal.WithLabelValues(op, "error").Inc()
			c.logger.Warn("调用人脸识别服务失败", zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if resp.StatusCode >= 300 {
			metrics.IdentityCallsTotal.WithLabelValues(op, fmt.Sprintf("%dxx", resp.StatusCode/100)).Inc()
			statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
			if resp.StatusCode >= 500 {
				c.logger.Warn("人脸识别服务返回错误", zap.String("op", op), zap.Int("attempt", attempt), zap.Int("status", resp.StatusCode))
				return retry.RetryableError(statusErr)
			}
			return statusErr
		}

		metrics.IdentityCallsTotal.WithLabelValues(op, "ok").Inc()
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("解析人脸识别服务响应失败: %w", err)
			}
		}
		return nil
	})
	return err
}

func multipartBody(fields map[string]string, fileField string, files []File) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "image/png"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
