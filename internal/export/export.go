// Package export 把服务端导出的图谱数据编码并保存到本地文件
// Package export encodes the server's graph export payload and saves it locally.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat 不支持的导出格式 / ErrUnsupportedFormat is returned for unknown formats
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat 接受 json|csv（不区分大小写）
// ParseFormat accepts json or csv, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// FileName 返回 knowledge_graph_<id>.<format>
// FileName returns knowledge_graph_<id>.<format>.
func FileName(sessionID string, format Format) string {
	return fmt.Sprintf("knowledge_graph_%s.%s", sanitize(sessionID), format)
}

// ImageName 返回 graph_<id>.<ext> / ImageName returns graph_<id>.<ext>
func ImageName(sessionID, ext string) string {
	return fmt.Sprintf("graph_%s.%s", sanitize(sessionID), ext)
}

// Encode json 以两空格缩进美化，csv 原样使用服务端文本
// Encode pretty-prints json with a two-space indent and uses csv text verbatim.
func Encode(format Format, data json.RawMessage) ([]byte, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("export payload is empty")
	}
	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, fmt.Errorf("indent json export: %w", err)
		}
		buf.WriteByte('\n')
		return buf.Bytes(), nil
	case FormatCSV:
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return nil, fmt.Errorf("csv export payload is not text: %w", err)
		}
		return []byte(text), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Saver 客户端本地保存 / Saver performs the client-local save
type Saver interface {
	Save(name string, data []byte) (string, error)
}

// DirSaver 写入目录 Dir（为空时为当前目录）
// DirSaver writes into Dir, or the working directory when empty.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(name string, data []byte) (string, error) {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// sanitize 会话 ID 来自服务端，去掉路径分隔符
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, id)
}
