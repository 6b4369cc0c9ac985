package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/bloghub/internal/foundation/errors"
	"git.home.luguber.info/inful/bloghub/internal/frontmatter"
	"git.home.luguber.info/inful/bloghub/internal/markdown"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	File             string `arg:"" optional:"" help:"Markdown file; reads stdin when omitted" type:"existingfile"`
	StripFrontmatter bool   `name:"strip-frontmatter" help:"Drop a leading YAML frontmatter block before rendering"`
}

func (r *RenderCmd) Run(_ *Global, _ *CLI) error {
	return r.render(os.Stdin, os.Stdout)
}

func (r *RenderCmd) render(stdin io.Reader, out io.Writer) error {
	var raw []byte
	var err error
	if r.File != "" {
		raw, err = os.ReadFile(r.File)
	} else {
		raw, err = io.ReadAll(stdin)
	}
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to read markdown").Build()
	}

	src := string(raw)
	if r.StripFrontmatter {
		if doc, err := frontmatter.Split(src); err == nil {
			src = doc.Body
		}
	}
	_, err = fmt.Fprintln(out, markdown.Render(src))
	return err
}
