package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dshills/codescout/pkg/types"
)

// Defaults for block sizing.
const (
	// DefaultMinBlockChars is the floor below which adjacent blocks
	// are coalesced.
	DefaultMinBlockChars = 50

	// DefaultMaxBlockChars is the ceiling above which a block is
	// split on line boundaries.
	DefaultMaxBlockChars = 1500

	// DefaultFallbackWindowLines is the window size for plain
	// line-based segmentation of unsupported file types.
	DefaultFallbackWindowLines = 40
)

// Options configures block extraction. Zero values fall back to
// defaults.
type Options struct {
	MinBlockChars       int
	MaxBlockChars       int
	FallbackWindowLines int
}

// Parser extracts indexable code blocks from source files. Supported
// languages are segmented on top-level syntax-tree declarations;
// everything else falls back to fixed line windows.
type Parser struct {
	opts Options
}

// New creates a Parser.
func New(opts Options) *Parser {
	if opts.MinBlockChars <= 0 {
		opts.MinBlockChars = DefaultMinBlockChars
	}
	if opts.MaxBlockChars <= 0 {
		opts.MaxBlockChars = DefaultMaxBlockChars
	}
	if opts.FallbackWindowLines <= 0 {
		opts.FallbackWindowLines = DefaultFallbackWindowLines
	}
	return &Parser{opts: opts}
}

// languageForExt maps a file extension to its grammar, or nil for
// unsupported types.
func languageForExt(ext string) *sitter.Language {
	switch strings.ToLower(ext) {
	case ".go":
		return golang.GetLanguage()
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	case ".ts", ".tsx":
		return typescript.GetLanguage()
	case ".py":
		return python.GetLanguage()
	default:
		return nil
	}
}

// Supported reports whether path gets syntax-aware segmentation.
func Supported(path string) bool {
	return languageForExt(filepath.Ext(path)) != nil
}

// Parse reads path and extracts its code blocks. Each block carries
// file location metadata and a content hash.
func (p *Parser) Parse(path string) ([]types.CodeBlock, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(content) == 0 {
		return nil, nil
	}

	lang := languageForExt(filepath.Ext(path))
	if lang == nil {
		return p.segmentLines(path, string(content)), nil
	}
	return p.parseTree(path, content, lang)
}

// parseTree segments content on the top-level declarations of its
// syntax tree. sitter.Parser is not safe for concurrent use, so each
// call gets its own instance.
func (p *Parser) parseTree(path string, content []byte, lang *sitter.Language) ([]types.CodeBlock, error) {
	sp := sitter.NewParser()
	sp.SetLanguage(lang)

	tree, err := sp.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	blocks := make([]types.CodeBlock, 0, root.NamedChildCount())
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		block := types.CodeBlock{
			Content:   node.Content(content),
			FilePath:  path,
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
		}
		if strings.TrimSpace(block.Content) == "" {
			continue
		}
		blocks = append(blocks, block)
	}

	blocks = p.coalesceSmall(blocks)
	blocks = p.splitLarge(blocks)
	for i := range blocks {
		blocks[i].ComputeHash()
	}
	return blocks, nil
}

// coalesceSmall merges runs of adjacent blocks until each merged block
// reaches the minimum size. Import groups, constants, and one-line
// declarations end up indexed together instead of as fragments.
func (p *Parser) coalesceSmall(blocks []types.CodeBlock) []types.CodeBlock {
	if len(blocks) < 2 {
		return blocks
	}

	out := make([]types.CodeBlock, 0, len(blocks))
	var pending *types.CodeBlock
	for i := range blocks {
		b := blocks[i]
		if pending == nil {
			pending = &b
		} else {
			pending.Content += "\n\n" + b.Content
			pending.EndLine = b.EndLine
		}
		if len(pending.Content) >= p.opts.MinBlockChars {
			out = append(out, *pending)
			pending = nil
		}
	}
	if pending != nil {
		// A trailing fragment folds into the previous block when one
		// exists.
		if len(out) > 0 {
			last := &out[len(out)-1]
			last.Content += "\n\n" + pending.Content
			last.EndLine = pending.EndLine
		} else {
			out = append(out, *pending)
		}
	}
	return out
}

// splitLarge breaks oversized blocks on line boundaries so no single
// block exceeds the maximum size.
func (p *Parser) splitLarge(blocks []types.CodeBlock) []types.CodeBlock {
	out := make([]types.CodeBlock, 0, len(blocks))
	for _, b := range blocks {
		if len(b.Content) <= p.opts.MaxBlockChars {
			out = append(out, b)
			continue
		}

		lines := strings.Split(b.Content, "\n")
		start := 0
		size := 0
		for i, line := range lines {
			size += len(line) + 1
			if size < p.opts.MaxBlockChars && i < len(lines)-1 {
				continue
			}
			out = append(out, types.CodeBlock{
				Content:   strings.Join(lines[start:i+1], "\n"),
				FilePath:  b.FilePath,
				StartLine: b.StartLine + start,
				EndLine:   b.StartLine + i,
			})
			start = i + 1
			size = 0
		}
	}
	return out
}

// segmentLines is the fallback for unsupported file types: fixed-size
// line windows.
func (p *Parser) segmentLines(path, content string) []types.CodeBlock {
	lines := strings.Split(content, "\n")
	window := p.opts.FallbackWindowLines

	blocks := make([]types.CodeBlock, 0, len(lines)/window+1)
	for start := 0; start < len(lines); start += window {
		end := start + window
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		block := types.CodeBlock{
			Content:   text,
			FilePath:  path,
			StartLine: start + 1,
			EndLine:   end,
		}
		block.ComputeHash()
		blocks = append(blocks, block)
	}
	return blocks
}
