package domain

type Response struct {
	ChatID   int64
	Text     string
	Image    *Image
	Video    *Video
	Keyboard *Keyboard
	Err      error
}

type Image struct {
	PromptID int64
	Caption  string
	Data     []byte
}

type Video struct {
	Data     []byte
	MimeType string
}

type Keyboard struct {
	Title         string
	Buttons       []KeyboardButton
	ButtonsPerRow int
}

type KeyboardButton struct {
	Label string
	Data  string
}
