package layout

// tagClass is the semantic role of an HTML tag as far as the collector is
// concerned. Classification happens once per tag name; the handlers switch
// over the class instead of re-testing name sets.
type tagClass int

const (
	tagOther tagClass = iota
	tagHeading
	tagParagraph
	tagIndent
	tagPref
	tagBullet
	tagHidden
	tagItalic
	tagBold
	tagSup
	tagSub
	tagImage
	tagBreak
)

func classify(name string) tagClass {
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return tagHeading
	case "p", "div":
		return tagParagraph
	case "q", "dt", "dd", "blockquote":
		return tagIndent
	case "pre":
		return tagPref
	case "li":
		return tagBullet
	case "script", "style", "head":
		return tagHidden
	case "i", "em":
		return tagItalic
	case "b", "strong":
		return tagBold
	case "sup":
		return tagSup
	case "sub":
		return tagSub
	case "img", "image":
		return tagImage
	case "br":
		return tagBreak
	}
	return tagOther
}
