package model

// LeafImage is the raw user-selected file. Bytes are passed to the network layer untouched.
type LeafImage struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (i LeafImage) Size() int64 {
	return int64(len(i.Data))
}
