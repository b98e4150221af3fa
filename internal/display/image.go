package display

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ImageInfo data: 图片引用的类型与解码后大小
// ImageInfo is the media type and decoded size of a data: image reference.
type ImageInfo struct {
	MIME string
	Size int
}

// Ext 文件扩展名 / Ext is the file extension for the media type
func (i ImageInfo) Ext() string {
	switch i.MIME {
	case "image/png":
		return "png"
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/svg+xml":
		return "svg"
	case "image/webp":
		return "webp"
	default:
		return "bin"
	}
}

// DescribeImage 返回图片信息而不保留数据
// DescribeImage reports image info without keeping the bytes.
func DescribeImage(ref string) (ImageInfo, error) {
	data, info, err := DecodeImage(ref)
	if err != nil {
		return ImageInfo{}, err
	}
	info.Size = len(data)
	return info, nil
}

// DecodeImage 解码 data:image/...;base64,... 或百分号编码的引用
// DecodeImage decodes a data:image/... reference, base64 or percent-encoded.
func DecodeImage(ref string) ([]byte, ImageInfo, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "data:") {
		return nil, ImageInfo{}, errors.New("graph image is not a data URL")
	}
	header, payload, ok := strings.Cut(ref[len("data:"):], ",")
	if !ok {
		return nil, ImageInfo{}, errors.New("malformed data URL")
	}
	params := strings.Split(header, ";")
	mime := strings.ToLower(strings.TrimSpace(params[0]))
	if mime == "" {
		mime = "text/plain"
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, ImageInfo{}, fmt.Errorf("data URL is %s, not an image", mime)
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			return nil, ImageInfo{}, fmt.Errorf("decode base64 image: %w", err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, ImageInfo{}, fmt.Errorf("decode image: %w", err)
		}
		data = []byte(unescaped)
	}
	return data, ImageInfo{MIME: mime, Size: len(data)}, nil
}

// HumanSize 以 B/KB/MB 显示 / HumanSize formats a byte count as B, KB or MB
func HumanSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
