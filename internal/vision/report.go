// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"fmt"
	"strings"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// Report holds the annotations for one image as plain values.
type Report struct {
	Source   string    `json:"source" yaml:"source"`
	Features []Feature `json:"features" yaml:"features"`

	Faces      []Face      `json:"faces,omitempty" yaml:"faces,omitempty"`
	Labels     []Entity    `json:"labels,omitempty" yaml:"labels,omitempty"`
	Landmarks  []Entity    `json:"landmarks,omitempty" yaml:"landmarks,omitempty"`
	Logos      []Entity    `json:"logos,omitempty" yaml:"logos,omitempty"`
	Texts      []Entity    `json:"texts,omitempty" yaml:"texts,omitempty"`
	SafeSearch *SafeSearch `json:"safe_search,omitempty" yaml:"safe_search,omitempty"`
	Colors     []Color     `json:"colors,omitempty" yaml:"colors,omitempty"`
	Web        *Web        `json:"web,omitempty" yaml:"web,omitempty"`
	CropHints  []CropHint  `json:"crop_hints,omitempty" yaml:"crop_hints,omitempty"`
	Document   *Document   `json:"document,omitempty" yaml:"document,omitempty"`

	// Errors records features whose detection failed.
	Errors map[Feature]string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// Vertex is a pixel coordinate of a bounding polygon.
type Vertex struct {
	X int32 `json:"x" yaml:"x"`
	Y int32 `json:"y" yaml:"y"`
}

// LatLng is a landmark location.
type LatLng struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Face is one detected face.
type Face struct {
	Anger      string   `json:"anger" yaml:"anger"`
	Joy        string   `json:"joy" yaml:"joy"`
	Surprise   string   `json:"surprise" yaml:"surprise"`
	Sorrow     string   `json:"sorrow" yaml:"sorrow"`
	Confidence float32  `json:"confidence" yaml:"confidence"`
	Bounds     []Vertex `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

// Entity is a label, landmark, logo or text annotation.
type Entity struct {
	Description string   `json:"description" yaml:"description"`
	Score       float32  `json:"score,omitempty" yaml:"score,omitempty"`
	Locale      string   `json:"locale,omitempty" yaml:"locale,omitempty"`
	Locations   []LatLng `json:"locations,omitempty" yaml:"locations,omitempty"`
	Bounds      []Vertex `json:"bounds,omitempty" yaml:"bounds,omitempty"`
}

// SafeSearch holds likelihood names for each category.
type SafeSearch struct {
	Adult    string `json:"adult" yaml:"adult"`
	Medical  string `json:"medical" yaml:"medical"`
	Spoof    string `json:"spoof" yaml:"spoof"`
	Violence string `json:"violence" yaml:"violence"`
	Racy     string `json:"racy" yaml:"racy"`
}

// Color is one dominant color.
type Color struct {
	Red           float32 `json:"red" yaml:"red"`
	Green         float32 `json:"green" yaml:"green"`
	Blue          float32 `json:"blue" yaml:"blue"`
	Score         float32 `json:"score" yaml:"score"`
	PixelFraction float32 `json:"pixel_fraction" yaml:"pixel_fraction"`
}

// Web is the web detection result.
type Web struct {
	BestGuessLabels         []string    `json:"best_guess_labels,omitempty" yaml:"best_guess_labels,omitempty"`
	PagesWithMatchingImages []WebPage   `json:"pages_with_matching_images,omitempty" yaml:"pages_with_matching_images,omitempty"`
	FullMatchingImages      []WebImage  `json:"full_matching_images,omitempty" yaml:"full_matching_images,omitempty"`
	PartialMatchingImages   []WebImage  `json:"partial_matching_images,omitempty" yaml:"partial_matching_images,omitempty"`
	Entities                []WebEntity `json:"entities,omitempty" yaml:"entities,omitempty"`
}

// WebPage is a page that contains a matching image.
type WebPage struct {
	URL   string  `json:"url" yaml:"url"`
	Title string  `json:"title,omitempty" yaml:"title,omitempty"`
	Score float32 `json:"score,omitempty" yaml:"score,omitempty"`
}

// WebImage is a matching image.
type WebImage struct {
	URL   string  `json:"url" yaml:"url"`
	Score float32 `json:"score,omitempty" yaml:"score,omitempty"`
}

// WebEntity is an entity inferred from similar images on the web.
type WebEntity struct {
	ID          string  `json:"id,omitempty" yaml:"id,omitempty"`
	Description string  `json:"description" yaml:"description"`
	Score       float32 `json:"score" yaml:"score"`
}

// CropHint is a suggested crop region.
type CropHint struct {
	Bounds             []Vertex `json:"bounds" yaml:"bounds"`
	Confidence         float32  `json:"confidence" yaml:"confidence"`
	ImportanceFraction float32  `json:"importance_fraction" yaml:"importance_fraction"`
}

// Document is dense text recognition output.
type Document struct {
	Text   string   `json:"text" yaml:"text"`
	Blocks []Block  `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	Words  []string `json:"-" yaml:"-"`
}

// Block is one block of a document page.
type Block struct {
	Text       string   `json:"text" yaml:"text"`
	Confidence float32  `json:"confidence" yaml:"confidence"`
	Bounds     []Vertex `json:"bounds" yaml:"bounds"`
}

// TextFragments returns the recognized text in response order: the full
// text first, then each word. When only document text was requested, the
// document text and its words are used instead.
func (r *Report) TextFragments() []string {
	if r == nil {
		return nil
	}
	if len(r.Texts) > 0 {
		out := make([]string, len(r.Texts))
		for i, t := range r.Texts {
			out[i] = t.Description
		}
		return out
	}
	if r.Document != nil && r.Document.Text != "" {
		return append([]string{r.Document.Text}, r.Document.Words...)
	}
	return nil
}

// FormatBounds renders vertices as "(x,y),(x,y),...".
func FormatBounds(vs []Vertex) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmt.Sprintf("(%d,%d)", v.X, v.Y)
	}
	return strings.Join(parts, ",")
}

func convertVertices(poly *visionpb.BoundingPoly) []Vertex {
	vs := poly.GetVertices()
	if len(vs) == 0 {
		return nil
	}
	out := make([]Vertex, len(vs))
	for i, v := range vs {
		out[i] = Vertex{X: v.GetX(), Y: v.GetY()}
	}
	return out
}

func convertFaces(faces []*visionpb.FaceAnnotation) []Face {
	out := make([]Face, 0, len(faces))
	for _, f := range faces {
		out = append(out, Face{
			Anger:      f.GetAngerLikelihood().String(),
			Joy:        f.GetJoyLikelihood().String(),
			Surprise:   f.GetSurpriseLikelihood().String(),
			Sorrow:     f.GetSorrowLikelihood().String(),
			Confidence: f.GetDetectionConfidence(),
			Bounds:     convertVertices(f.GetBoundingPoly()),
		})
	}
	return out
}

func convertEntities(entities []*visionpb.EntityAnnotation) []Entity {
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		entity := Entity{
			Description: e.GetDescription(),
			Score:       e.GetScore(),
			Locale:      e.GetLocale(),
			Bounds:      convertVertices(e.GetBoundingPoly()),
		}
		for _, loc := range e.GetLocations() {
			ll := loc.GetLatLng()
			entity.Locations = append(entity.Locations, LatLng{Latitude: ll.GetLatitude(), Longitude: ll.GetLongitude()})
		}
		out = append(out, entity)
	}
	return out
}

func convertSafeSearch(s *visionpb.SafeSearchAnnotation) *SafeSearch {
	if s == nil {
		return nil
	}
	return &SafeSearch{
		Adult:    s.GetAdult().String(),
		Medical:  s.GetMedical().String(),
		Spoof:    s.GetSpoof().String(),
		Violence: s.GetViolence().String(),
		Racy:     s.GetRacy().String(),
	}
}

func convertProperties(p *visionpb.ImageProperties) []Color {
	colors := p.GetDominantColors().GetColors()
	out := make([]Color, 0, len(colors))
	for _, c := range colors {
		out = append(out, Color{
			Red:           c.GetColor().GetRed(),
			Green:         c.GetColor().GetGreen(),
			Blue:          c.GetColor().GetBlue(),
			Score:         c.GetScore(),
			PixelFraction: c.GetPixelFraction(),
		})
	}
	return out
}

func convertWeb(w *visionpb.WebDetection) *Web {
	if w == nil {
		return nil
	}
	out := &Web{}
	for _, l := range w.GetBestGuessLabels() {
		out.BestGuessLabels = append(out.BestGuessLabels, l.GetLabel())
	}
	for _, p := range w.GetPagesWithMatchingImages() {
		out.PagesWithMatchingImages = append(out.PagesWithMatchingImages, WebPage{URL: p.GetUrl(), Title: p.GetPageTitle(), Score: p.GetScore()})
	}
	for _, img := range w.GetFullMatchingImages() {
		out.FullMatchingImages = append(out.FullMatchingImages, WebImage{URL: img.GetUrl(), Score: img.GetScore()})
	}
	for _, img := range w.GetPartialMatchingImages() {
		out.PartialMatchingImages = append(out.PartialMatchingImages, WebImage{URL: img.GetUrl(), Score: img.GetScore()})
	}
	for _, e := range w.GetWebEntities() {
		out.Entities = append(out.Entities, WebEntity{ID: e.GetEntityId(), Description: e.GetDescription(), Score: e.GetScore()})
	}
	return out
}

func convertCropHints(c *visionpb.CropHintsAnnotation) []CropHint {
	hints := c.GetCropHints()
	out := make([]CropHint, 0, len(hints))
	for _, h := range hints {
		out = append(out, CropHint{
			Bounds:             convertVertices(h.GetBoundingPoly()),
			Confidence:         h.GetConfidence(),
			ImportanceFraction: h.GetImportanceFraction(),
		})
	}
	return out
}

func convertDocument(t *visionpb.TextAnnotation) *Document {
	if t == nil {
		return nil
	}
	doc := &Document{Text: t.GetText()}
	for _, page := range t.GetPages() {
		for _, block := range page.GetBlocks() {
			var paragraphs []string
			for _, para := range block.GetParagraphs() {
				var words []string
				for _, word := range para.GetWords() {
					var sb strings.Builder
					for _, symbol := range word.GetSymbols() {
						sb.WriteString(symbol.GetText())
					}
					words = append(words, sb.String())
				}
				doc.Words = append(doc.Words, words...)
				paragraphs = append(paragraphs, strings.Join(words, " "))
			}
			doc.Blocks = append(doc.Blocks, Block{
				Text:       strings.Join(paragraphs, "\n"),
				Confidence: block.GetConfidence(),
				Bounds:     convertVertices(block.GetBoundingBox()),
			})
		}
	}
	return doc
}
