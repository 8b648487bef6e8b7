package pptx

import (
	"encoding/xml"
	"strings"
)

type notesXML struct {
	Shapes []struct {
		Placeholder struct {
			Type string `xml:"type,attr"`
		} `xml:"nvSpPr>nvPr>ph"`
		Paragraphs []paragraphXML `xml:"txBody>p"`
	} `xml:"cSld>spTree>sp"`
}

type paragraphXML struct {
	Items []struct {
		XMLName xml.Name
		Text    string `xml:"t"`
	} `xml:",any"`
}

// readNotes returns the text of the body placeholder of a notes page.
// Paragraphs and line breaks both become newlines.
func (d *Document) readNotes(part string) (string, error) {
	var nx notesXML
	if err := d.decodePart(part, &nx); err != nil {
		return "", err
	}

	for _, shape := range nx.Shapes {
		if shape.Placeholder.Type != "body" {
			continue
		}
		paragraphs := make([]string, 0, len(shape.Paragraphs))
		for _, p := range shape.Paragraphs {
			var sb strings.Builder
			for _, item := range p.Items {
				switch item.XMLName.Local {
				case "r", "fld":
					sb.WriteString(item.Text)
				case "br":
					sb.WriteString("\n")
				}
			}
			paragraphs = append(paragraphs, sb.String())
		}
		return strings.Join(paragraphs, "\n"), nil
	}
	return "", nil
}
