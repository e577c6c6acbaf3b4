package promo

// ChangeKind enumerates the transition between the stored record and a
// fresh observation.
type ChangeKind string

const (
	// ChangeFirstRun means no prior record exists.
	ChangeFirstRun ChangeKind = "first_run"
	// ChangeNone means text, link and image all match the stored state.
	ChangeNone ChangeKind = "no_change"
	// ChangeImageOnly means only the image URL moved, with text and link
	// unchanged. CDN cache busting produces these without any semantic
	// promotion change.
	ChangeImageOnly ChangeKind = "image_url_only"
	// ChangeReal means the caption or the link moved.
	ChangeReal ChangeKind = "real_change"
)

// trivialImageKeyLen is the threshold below which an image key is treated
// as a placeholder rather than a real banner asset.
const trivialImageKeyLen = 10

// Change is the classified transition plus the tags that drive the
// decision engine's message choice.
type Change struct {
	Kind ChangeKind
	// HasVisual reports that the observation carries a usable banner
	// image, selecting the full photo message variant.
	HasVisual bool
	// ReturnToBaseline reports that the caption went back to the stored
	// resting value, i.e. a flash promotion ended.
	ReturnToBaseline bool
}

// ClassifyOptions carries policy knobs for classification.
type ClassifyOptions struct {
	// LinkChangeIsReal counts a moved link as a real change even when
	// the caption is unchanged.
	LinkChangeIsReal bool
}

// Classify compares a normalized observation against the last persisted
// record. Pure; the decision engine owns all side effects.
func Classify(current Promotion, previous *Record, opts ClassifyOptions) Change {
	if previous == nil {
		return Change{Kind: ChangeFirstRun, HasVisual: hasVisual(current)}
	}

	sameText := current.Text == previous.Text
	sameLink := current.LinkKey == previous.LinkKey || !opts.LinkChangeIsReal

	if sameText && sameLink {
		if current.ImageKey != previous.ImageKey {
			return Change{Kind: ChangeImageOnly}
		}
		return Change{Kind: ChangeNone}
	}

	return Change{
		Kind:             ChangeReal,
		HasVisual:        hasVisual(current),
		ReturnToBaseline: current.Text == previous.BaselineText,
	}
}

func hasVisual(p Promotion) bool {
	return len(p.ImageKey) > trivialImageKeyLen
}
