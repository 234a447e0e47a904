// Package importer reads bookmark libraries exported by browsers.
package importer

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/nikbrunner/bmlens/internal/model"
)

// Format is a bookmark file format.
type Format string

const (
	FormatUnknown Format = ""
	FormatHTML    Format = "html"
	FormatChrome  Format = "chrome"
)

const sniffLen = 4096

// DetectFormat sniffs the start of a file.
func DetectFormat(head []byte) Format {
	head = bytes.TrimLeft(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")), " \t\r\n")
	switch {
	case len(head) == 0:
		return FormatUnknown
	case head[0] == '<':
		return FormatHTML
	case head[0] == '{' && bytes.Contains(head, []byte(`"roots"`)):
		return FormatChrome
	}
	return FormatUnknown
}

// Parse detects the format of r and parses it.
func Parse(r io.Reader) (Format, []model.Folder, []model.Bookmark, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return FormatUnknown, nil, nil, fmt.Errorf("read bookmark file: %w", err)
	}

	format := DetectFormat(head)
	var folders []model.Folder
	var bookmarks []model.Bookmark
	switch format {
	case FormatHTML:
		folders, bookmarks, err = ParseHTMLBookmarks(br)
	case FormatChrome:
		folders, bookmarks, err = ParseChromeBookmarks(br)
	default:
		return FormatUnknown, nil, nil, fmt.Errorf("unrecognized bookmark file format")
	}
	if err != nil {
		return format, nil, nil, err
	}
	return format, folders, bookmarks, nil
}
