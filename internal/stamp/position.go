package stamp

import "image"

// Position returns the top-left corner of a textW x textH box pinned to the
// anchor corner of a width x height image, inset by margin on both axes.
// The result may be negative when the text is larger than the image.
func Position(anchor Anchor, width, height, textW, textH, margin int) image.Point {
	switch anchor {
	case TopRight:
		return image.Pt(width-textW-margin, margin)
	case BottomLeft:
		return image.Pt(margin, height-textH-margin)
	case BottomRight:
		return image.Pt(width-textW-margin, height-textH-margin)
	default:
		return image.Pt(margin, margin)
	}
}
