package reconcile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pdfxlate/pdfxlate/internal/document"
	"github.com/pdfxlate/pdfxlate/internal/extract"
)

var captionPattern = regexp.MustCompile(`(?i)^(figure|fig\.?|table|image)\s*\d+`)

// placeImages implements spec §4.1 steps 7-9: every surviving ImageAsset
// becomes an ImagePlaceholder inserted into its page's block list, its
// spatial relationship to the nearest text block is classified, and a
// caption line within range is converted to a Caption block pointing at it.
func (r *Reconciler) placeImages(doc *document.Document, visual extract.VisualOutput) {
	for i, img := range visual.Images {
		if img.PageIndex < 0 || img.PageIndex >= len(doc.Pages) {
			continue
		}
		page := doc.Pages[img.PageIndex]
		assetID := img.AssetID
		if assetID == "" {
			assetID = fmt.Sprintf("asset_%d", i)
			visual.Images[i].AssetID = assetID
		}
		doc.AssetIDs[assetID] = true

		id := fmt.Sprintf("p%d_img%04d", page.Number, i+1)
		placeholder := document.NewImagePlaceholder(id, page.Number, toDocBBox(img.BBox), assetID)
		placeholder.SpatialRelationship = classifySpatialRelationship(page.Blocks, toDocBBox(img.BBox))
		placeholder.ReadingOrderPosition = len(page.Blocks)

		captionIdx := findCaption(page.Blocks, toDocBBox(img.BBox), page.Height*r.Options.MaxCaptionDistance)
		if captionIdx >= 0 {
			src := page.Blocks[captionIdx].(*document.Paragraph)
			capID := fmt.Sprintf("%s_cap", id)
			capBlock := document.NewCaption(capID, page.Number, src.BoundingBox, src.OriginalText, id)
			placeholder.CaptionID = capID
			page.Blocks[captionIdx] = capBlock
		}

		page.Blocks = append(page.Blocks, placeholder)
	}
}

// classifySpatialRelationship compares an image's vertical position to the
// nearest text block's to decide whether the image sits before, after, or
// alongside the surrounding text.
func classifySpatialRelationship(blocks []document.Block, imgBBox document.BBox) document.SpatialRelationship {
	var nearest document.Block
	bestDist := -1.0
	imgCenter := imgBBox.Center()
	for _, b := range blocks {
		c := b.Base().BoundingBox.Center()
		d := imgCenter.Distance(c)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			nearest = b
		}
	}
	if nearest == nil {
		return document.SpatialAfter
	}
	nc := nearest.Base().BoundingBox.Center()
	dx := abs(nc.X - imgCenter.X)
	dy := nc.Y - imgCenter.Y // positive: text sits above the image (PDF Y-up)
	if dx > imgBBox.Width {
		return document.SpatialAlongside
	}
	if dy > 0 {
		return document.SpatialAfter
	}
	return document.SpatialBefore
}

// findCaption locates the Paragraph nearest to one of imgBBox's vertical
// edges, within maxDist, whose text opens with a "Figure N" / "Table N"
// style caption marker. Edge distance, not center distance, is used so
// tall images don't push their caption out of range.
func findCaption(blocks []document.Block, imgBBox document.BBox, maxDist float64) int {
	imgTop := imgBBox.Y + imgBBox.Height
	imgBottom := imgBBox.Y
	best := -1
	bestDist := maxDist
	for i, b := range blocks {
		p, ok := b.(*document.Paragraph)
		if !ok {
			continue
		}
		if !captionPattern.MatchString(strings.TrimSpace(p.OriginalText)) {
			continue
		}
		pTop := p.BoundingBox.Y + p.BoundingBox.Height
		pBottom := p.BoundingBox.Y
		d := min2(abs(pBottom-imgTop), abs(imgBottom-pTop))
		if d <= bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
