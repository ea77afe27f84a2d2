package framepresenter

import (
	"strings"

	"github.com/park285/IgKnight-client/internal/gameview"
)

// ImageRenderer turns a frame into PNG bytes.
type ImageRenderer interface {
	RenderFrame(fr gameview.Frame) ([]byte, error)
}

// Presenter delivers formatted frames without coupling to the terminal.
type Presenter struct {
	format    *Formatter
	render    ImageRenderer
	sendText  func(text string) error
	sendImage func(png []byte) error
}

func NewPresenter(format *Formatter, render ImageRenderer, sendText func(string) error, sendImage func([]byte) error) *Presenter {
	if format == nil {
		format = NewFormatter(nil)
	}
	return &Presenter{format: format, render: render, sendText: sendText, sendImage: sendImage}
}

// Frame writes the text board, then the image when both a renderer and an
// image sink are configured.
func (p *Presenter) Frame(fr gameview.Frame, extra string) error {
	if p == nil {
		return nil
	}
	if p.sendText != nil {
		text := p.format.Board(fr)
		if e := strings.TrimSpace(extra); e != "" {
			text += e + "\n"
		}
		if err := p.sendText(text); err != nil {
			return err
		}
	}
	if p.render != nil && p.sendImage != nil {
		png, err := p.render.RenderFrame(fr)
		if err != nil {
			return err
		}
		if err := p.sendImage(png); err != nil {
			return err
		}
	}
	return nil
}
