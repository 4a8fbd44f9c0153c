package render

import (
	"encoding/json"
	"fmt"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"

	"idcard/internal/student"
)

// PayloadJSON is the exact text encoded into a record's scannable code.
func PayloadJSON(rec student.Record) (string, error) {
	b, err := json.Marshal(rec.ScanPayload())
	if err != nil {
		return "", fmt.Errorf("encode scan payload: %w", err)
	}
	return string(b), nil
}

// NewCode builds a code node for rec at medium error correction.
func NewCode(rec student.Record, box Rect, fg, bg color.RGBA) (Code, error) {
	content, err := PayloadJSON(rec)
	if err != nil {
		return Code{}, err
	}
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return Code{}, fmt.Errorf("build scannable code: %w", err)
	}
	q.DisableBorder = true
	return Code{
		Rect:       box,
		Content:    content,
		Modules:    q.Bitmap(),
		Foreground: fg,
		Background: bg,
	}, nil
}
