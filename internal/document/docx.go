package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxMainPart = "word/document.xml"
	wordprocNS   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	markupNS     = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	// Upper bound on the decompressed main part.
	maxDocumentXML = 64 << 20
)

var errNoMainPart = errors.New("missing " + docxMainPart)

// Subtrees inside a paragraph whose text is not paragraph text. Word writes
// every text box twice, once per AlternateContent branch.
var skippedElements = map[string]bool{
	"drawing":                      true,
	"pict":                         true,
	"txbxContent":                  true,
	markupNS + ":AlternateContent": true,
}

// readDOCX joins the text of every body paragraph with a single space. Tabs
// and breaks inside a paragraph become \t and \n. Paragraphs nested in
// tables are not part of the body and are skipped, as are text boxes and
// drawings anchored in a paragraph.
func readDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxMainPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", errNoMainPart
	}

	rc, err := part.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	paragraphs, err := bodyParagraphs(io.LimitReader(rc, maxDocumentXML))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", docxMainPart, err)
	}
	return strings.Join(paragraphs, " "), nil
}

func bodyParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		stack      []string
		current    strings.Builder
		inPara     bool // inside a direct child <w:p> of <w:body>
		inText     bool
		skipDepth  int // >0 while inside a skipped subtree
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := localName(t.Name)
			stack = append(stack, name)
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			parent := ""
			if len(stack) > 1 {
				parent = stack[len(stack)-2]
			}
			if name == "p" && parent == "body" {
				inPara = true
				current.Reset()
				continue
			}
			if !inPara {
				continue
			}
			switch {
			case skippedElements[name]:
				skipDepth = 1
			case name == "t":
				inText = true
			case name == "tab":
				current.WriteByte('\t')
			case name == "br", name == "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errors.New("unbalanced document")
			}
			stack = stack[:len(stack)-1]
			if skipDepth > 0 {
				skipDepth--
				continue
			}
			name := localName(t.Name)
			if name == "t" {
				inText = false
			}
			if name == "p" && inPara && len(stack) > 0 && stack[len(stack)-1] == "body" {
				paragraphs = append(paragraphs, current.String())
				inPara = false
			}
		case xml.CharData:
			if inPara && inText && skipDepth == 0 {
				current.Write(t)
			}
		}
	}

	return paragraphs, nil
}

// localName returns the element name for the WordprocessingML namespace and
// a prefixed name for anything else, so foreign elements never match.
func localName(n xml.Name) string {
	if n.Space == wordprocNS {
		return n.Local
	}
	return n.Space + ":" + n.Local
}
