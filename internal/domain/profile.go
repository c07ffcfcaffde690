package domain

// Profile is a saved scan request under a caller-chosen name.
type Profile struct {
	Name    string
	UserIDs []string
	From    string
	To      string
	Kinds   []ChatKind
}

func (p Profile) Request() ScanRequest {
	return ScanRequest{
		UserIDs: p.UserIDs,
		From:    p.From,
		To:      p.To,
		Kinds:   p.Kinds,
	}
}
