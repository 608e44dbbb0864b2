package stake

import "errors"

// Fatal errors. They mean the stored chain is inconsistent, not that the candidate block is invalid.
var (
	ErrStakeModifierSelectionFailed = errors.New("stake modifier selection failed")
	ErrGeneratedModifierNotFound    = errors.New("no generated stake modifier in ancestry")
)

// IsFatal reports whether err signals store corruption or missing history.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStakeModifierSelectionFailed) || errors.Is(err, ErrGeneratedModifierNotFound)
}
