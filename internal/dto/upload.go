package dto

import "io"

// Upload is one candidate file received from the transport layer.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// IsPlaceholder reports whether the upload is an empty form slot.
func (u Upload) IsPlaceholder() bool {
	return u.Filename == "" || u.Size <= 0 || u.Open == nil
}

// MediaChanges lists the attachments to remove and the files to append for one media kind.
type MediaChanges struct {
	DeleteIDs []int64
	Files     []Upload
}

// Empty reports whether there is nothing to apply.
func (m MediaChanges) Empty() bool {
	return len(m.DeleteIDs) == 0 && len(m.Files) == 0
}
