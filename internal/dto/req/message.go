package req

// SendText enqueues a text message for dispatch.
type SendText struct {
	To          string `json:"to" binding:"required"`
	Text        string `json:"text" binding:"required"`
	MaxAttempts int    `json:"max_attempts" binding:"omitempty,gte=1,lte=10"`
}

// SendMedia enqueues a media message; the payload is a content reference,
// not the bytes themselves.
type SendMedia struct {
	To          string `json:"to" binding:"required"`
	MediaURL    string `json:"media_url" binding:"required,url"`
	MaxAttempts int    `json:"max_attempts" binding:"omitempty,gte=1,lte=10"`
}
