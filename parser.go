package pagecraft

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/livetemplate/pagecraft/internal/block"
	"github.com/livetemplate/pagecraft/internal/registry"
	"github.com/livetemplate/pagecraft/internal/security"
	"github.com/livetemplate/pagecraft/internal/tree"
)

// Frontmatter is the YAML header of an imported markdown page.
type Frontmatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Favicon     string `yaml:"favicon"`
	Theme       string `yaml:"theme"`
	Layout      string `yaml:"layout"`
}

// Document is the result of a markdown import.
type Document struct {
	Frontmatter Frontmatter
	Blocks      []*block.Block
}

// Page returns the page settings described by the frontmatter.
func (d *Document) Page() tree.PageSettings {
	return tree.PageSettings{
		Title:       d.Frontmatter.Title,
		Description: d.Frontmatter.Description,
		Favicon:     d.Frontmatter.Favicon,
		Theme:       d.Frontmatter.Theme,
	}
}

// ParseMarkdown converts markdown into root-level blocks. Headings, text,
// images, links, rules, lists and code become the matching block types;
// anything else with text becomes a text block.
func ParseMarkdown(src []byte, reg *registry.Registry, newID func() string) (*Document, error) {
	fm, body, offset, err := extractFrontmatter(src)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(body))

	c := converter{reg: reg, newID: newID, src: body}
	out := &Document{Frontmatter: *fm}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		b, err := c.node(n)
		if err != nil {
			line := offset + lineOf(n, body)
			return nil, NewParseError("", line, err.Error()).WithSource(src)
		}
		if b != nil {
			out.Blocks = append(out.Blocks, b)
		}
	}
	return out, nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// extractFrontmatter splits off a leading YAML block. offset is the number
// of lines before body.
func extractFrontmatter(content []byte) (*Frontmatter, []byte, int, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(content, []byte("---\n")) {
		return &Frontmatter{}, content, 0, nil
	}

	end := bytes.Index(content[4:], []byte("\n---\n"))
	if end == -1 {
		if !bytes.HasSuffix(content, []byte("\n---")) {
			return nil, nil, 0, NewParseError("", 1, "unclosed frontmatter").
				WithHint("close the YAML header with a line containing only ---").
				WithSource(content)
		}
		end = len(content) - 4 - len("\n---")
	}

	yamlContent := content[4 : 4+end]
	body := []byte{}
	if rest := 4 + end + 5; rest <= len(content) {
		body = content[rest:]
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(yamlContent, &fm); err != nil {
		line := 1
		if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
			n, _ := strconv.Atoi(m[1])
			line = n + 1
		}
		return nil, nil, 0, NewParseError("", line, "invalid frontmatter: "+err.Error()).
			WithHint("frontmatter accepts title, description, favicon, theme and layout").
			WithSource(content)
	}
	return &fm, body, bytes.Count(content[:len(content)-len(body)], []byte("\n")), nil
}

// lineOf returns the 1-indexed line a block node starts on.
func lineOf(n ast.Node, src []byte) int {
	for c := n; c != nil; c = c.FirstChild() {
		if c.Type() == ast.TypeBlock && c.Lines().Len() > 0 {
			return bytes.Count(src[:c.Lines().At(0).Start], []byte("\n")) + 1
		}
		if t, ok := c.(*ast.Text); ok {
			return bytes.Count(src[:t.Segment.Start], []byte("\n")) + 1
		}
	}
	return 1
}

type converter struct {
	reg   *registry.Registry
	newID func() string
	src   []byte
}

func (c converter) block(t block.Type) (*block.Block, error) {
	return c.reg.NewBlock(t, c.newID(), c.newID)
}

func (c converter) node(n ast.Node) (*block.Block, error) {
	switch n := n.(type) {
	case *ast.Heading:
		b, err := c.block(block.TypeHeading)
		if err != nil {
			return nil, err
		}
		s := b.Settings.(*block.HeadingSettings)
		s.Text = c.text(n)
		s.Level = n.Level
		return b, nil

	case *ast.Paragraph:
		return c.paragraph(n)

	case *ast.ThematicBreak:
		return c.block(block.TypeDivider)

	case *ast.List:
		stack, err := c.block(block.TypeStack)
		if err != nil {
			return nil, err
		}
		stack.Name = "List"
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			t, err := c.textBlock(c.text(item))
			if err != nil {
				return nil, err
			}
			stack.Children = append(stack.Children, t)
		}
		return stack, nil

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var b strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(c.src))
		}
		return c.textBlock(strings.TrimRight(b.String(), "\n"))

	case *ast.HTMLBlock:
		return nil, nil
	}

	if s := c.text(n); s != "" {
		return c.textBlock(s)
	}
	return nil, nil
}

// paragraph maps a lone image to an image block and a paragraph made only
// of links to buttons. Unsafe link targets become "#"; an image with an
// unsafe source keeps only its alt text.
func (c converter) paragraph(p *ast.Paragraph) (*block.Block, error) {
	var images []*ast.Image
	var links []*ast.Link
	other := false
	for n := p.FirstChild(); n != nil; n = n.NextSibling() {
		switch n := n.(type) {
		case *ast.Image:
			images = append(images, n)
		case *ast.Link:
			links = append(links, n)
		case *ast.Text:
			if strings.TrimSpace(string(n.Segment.Value(c.src))) != "" {
				other = true
			}
		default:
			other = true
		}
	}

	switch {
	case !other && len(images) == 1 && len(links) == 0:
		if security.ValidateImageURL(string(images[0].Destination)) != nil {
			return c.textBlock(c.text(images[0]))
		}
		b, err := c.block(block.TypeImage)
		if err != nil {
			return nil, err
		}
		s := b.Settings.(*block.ImageSettings)
		s.Src = string(images[0].Destination)
		s.Alt = c.text(images[0])
		return b, nil

	case !other && len(images) == 0 && len(links) == 1:
		return c.button(links[0])

	case !other && len(images) == 0 && len(links) > 1:
		stack, err := c.block(block.TypeStack)
		if err != nil {
			return nil, err
		}
		stack.Name = "Links"
		stack.Settings.(*block.StackSettings).Direction = "horizontal"
		for _, l := range links {
			b, err := c.button(l)
			if err != nil {
				return nil, err
			}
			stack.Children = append(stack.Children, b)
		}
		return stack, nil
	}
	return c.textBlock(c.text(p))
}

func (c converter) button(l *ast.Link) (*block.Block, error) {
	b, err := c.block(block.TypeButton)
	if err != nil {
		return nil, err
	}
	s := b.Settings.(*block.ButtonSettings)
	s.Text = c.text(l)
	s.URL = string(l.Destination)
	if security.ValidateLinkURL(s.URL) != nil {
		s.URL = "#"
	}
	return b, nil
}

func (c converter) textBlock(s string) (*block.Block, error) {
	b, err := c.block(block.TypeText)
	if err != nil {
		return nil, err
	}
	b.Settings.(*block.TextSettings).Text = s
	return b, nil
}

// text flattens the inline content under n.
func (c converter) text(n ast.Node) string {
	var b strings.Builder
	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteString(" ")
			}
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(c.src))
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.WriteString(" ")
			}
		case *ast.String:
			b.Write(n.Value)
		case *ast.AutoLink:
			b.Write(n.URL(c.src))
			return ast.WalkSkipChildren, nil
		case *east.TableCell:
			if b.Len() > 0 {
				b.WriteString(" ")
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
