package docx

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"io"
	"path"
	"strings"
)

const (
	documentPart = "word/document.xml"
	relsPart     = "word/_rels/document.xml.rels"
	mediaPrefix  = "word/media/"
)

// docPackage holds the parts of the OOXML package the parser needs: the main
// content part, the relationship table that resolves r:embed ids, and the
// embedded media blobs referenced by proof-of-concept cells.
type docPackage struct {
	document []byte
	rels     map[string]string // relationship id -> part name
	media    map[string][]byte // part name -> raw bytes
}

// openPackage opens an in-memory byte buffer as a WordprocessingML package.
// A missing word/document.xml is fatal; missing relationships or media are
// not, since they only feed the optional image extraction.
func openPackage(data []byte) (*docPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, malformed("cannot open archive", err)
	}

	pkg := &docPackage{
		rels:  map[string]string{},
		media: map[string][]byte{},
	}

	var relsXML []byte
	for _, f := range zr.File {
		switch {
		case f.Name == documentPart:
			pkg.document, err = readPart(f)
		case f.Name == relsPart:
			relsXML, err = readPart(f)
		case strings.HasPrefix(f.Name, mediaPrefix):
			pkg.media[f.Name], err = readPart(f)
		default:
			continue
		}
		if err != nil {
			return nil, malformed("cannot read part "+f.Name, err)
		}
	}

	if pkg.document == nil {
		return nil, malformed("missing "+documentPart, nil)
	}

	if relsXML != nil {
		pkg.rels = parseRelationships(relsXML)
	}

	return pkg, nil
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type relationshipsXML struct {
	XMLName       xml.Name `xml:"Relationships"`
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// parseRelationships maps relationship ids to package part names. Targets in
// document.xml.rels are relative to word/; producers occasionally emit
// absolute targets with a leading slash.
func parseRelationships(data []byte) map[string]string {
	var rels relationshipsXML
	if err := xml.Unmarshal(data, &rels); err != nil {
		return map[string]string{}
	}

	out := make(map[string]string, len(rels.Relationships))
	for _, r := range rels.Relationships {
		if r.ID == "" || r.Target == "" {
			continue
		}
		target := r.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join("word", target)
		}
		out[r.ID] = target
	}
	return out
}

// imageDataURI resolves an r:embed relationship id to a data: URI carrying
// the embedded image. Returns "" when the id or its media part is unknown.
func (p *docPackage) imageDataURI(relID string) string {
	target, ok := p.rels[relID]
	if !ok {
		return ""
	}
	blob, ok := p.media[target]
	if !ok {
		return ""
	}
	return "data:" + imageContentType(target) + ";base64," + base64.StdEncoding.EncodeToString(blob)
}

func imageContentType(partName string) string {
	switch strings.ToLower(path.Ext(partName)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".svg":
		return "image/svg+xml"
	case ".emf":
		return "image/x-emf"
	case ".wmf":
		return "image/x-wmf"
	default:
		return "image/png"
	}
}
