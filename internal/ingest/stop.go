package ingest

// StopInput carries the pagination signals observed on the page just stored.
type StopInput struct {
	CurrentPage int
	ItemsCount  int
	HasNext     *bool
	TotalPages  *int
	MaxPages    int
}

// ShouldStop applies the stop policy in order: the page cap, then a positive
// total page count, then an explicit has-next flag, and finally an empty page.
func ShouldStop(in StopInput) bool {
	if in.CurrentPage >= in.MaxPages {
		return true
	}
	if in.TotalPages != nil && *in.TotalPages > 0 && in.CurrentPage >= *in.TotalPages {
		return true
	}
	if in.HasNext != nil {
		return !*in.HasNext
	}
	return in.ItemsCount == 0
}
