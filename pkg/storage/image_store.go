package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidDataURI = errors.New("invalid base64 image")
	ErrInvalidName    = errors.New("invalid image name")
)

// Image 解码后的图片
type Image struct {
	ContentType string // image/png
	Ext         string // png
	Data        []byte
}

// ParseDataURI 解析 data:image/png;base64,xxxx 格式的图片
func ParseDataURI(s string) (*Image, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return nil, ErrInvalidDataURI
	}

	mediaType, encoding, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	if encoding != "base64" {
		return nil, ErrInvalidDataURI
	}
	_, ext, ok := strings.Cut(mediaType, "/")
	if !ok || ext == "" {
		return nil, ErrInvalidDataURI
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}

	return &Image{ContentType: mediaType, Ext: ext, Data: data}, nil
}

// ImageStore 本地图片目录，每个用户一个子目录
type ImageStore struct {
	root string
}

// NewImageStore 创建图片存储，根目录不存在时自动创建
func NewImageStore(root string) (*ImageStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("创建图片目录失败: %w", err)
	}
	return &ImageStore{root: root}, nil
}

// Root 存储根目录
func (s *ImageStore) Root() string { return s.root }

// Path 图片完整路径
func (s *ImageStore) Path(username, filename string) (string, error) {
	if !validSegment(username) || !validSegment(filename) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, username, filename), nil
}

// NewFilename 生成 {username}_{uuid}.{ext}
func NewFilename(username, ext string) string {
	return fmt.Sprintf("%s_%s.%s", username, uuid.NewString(), ext)
}

// Save 写入新图片，返回文件名
func (s *ImageStore) Save(username string, img *Image) (string, error) {
	filename := NewFilename(username, img.Ext)
	if err := s.Write(username, filename, img.Data); err != nil {
		return "", err
	}
	return filename, nil
}

// Write 写入（覆盖）指定文件
func (s *ImageStore) Write(username, filename string, data []byte) error {
	path, err := s.Path(username, filename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建用户图片目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入图片失败: %w", err)
	}
	return nil
}

// Stage 把新内容写入同目录下的暂存文件，返回暂存文件名；原文件不变
func (s *ImageStore) Stage(username, filename string, data []byte) (string, error) {
	if !validSegment(filename) {
		return "", ErrInvalidName
	}
	staged := fmt.Sprintf(".%s.%s.tmp", filename, uuid.NewString())
	if err := s.Write(username, staged, data); err != nil {
		return "", err
	}
	return staged, nil
}

// Commit 用暂存文件原子替换目标文件
func (s *ImageStore) Commit(username, staged, filename string) error {
	from, err := s.Path(username, staged)
	if err != nil {
		return err
	}
	to, err := s.Path(username, filename)
	if err != nil {
		return err
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("替换图片失败: %w", err)
	}
	return nil
}

// Discard 丢弃暂存文件
func (s *ImageStore) Discard(username, staged string) error {
	return s.Delete(username, staged)
}

// Read 读取图片内容
func (s *ImageStore) Read(username, filename string) ([]byte, error) {
	path, err := s.Path(username, filename)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// ReadBase64 读取图片并编码为 base64
func (s *ImageStore) ReadBase64(username, filename string) (string, error) {
	data, err := s.Read(username, filename)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Delete 删除图片，目录为空时一并删除；文件不存在不视为错误
func (s *ImageStore) Delete(username, filename string) error {
	path, err := s.Path(username, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("删除图片失败: %w", err)
	}

	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
	return nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}
