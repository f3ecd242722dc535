package types

type RequestSendMessage struct {
	NumeroDestino string `json:"numeroDestino" form:"numeroDestino"`
	Mensaje       string `json:"mensaje" form:"mensaje"`
}

type RequestSendImage struct {
	NumeroDestino string `json:"numeroDestino" form:"numeroDestino"`
	Mensaje       string `json:"mensaje" form:"mensaje"`
	ImageURL      string `json:"imageUrl" form:"imageUrl"`
}

type RequestQR struct {
	Output string `query:"output"`
	Size   int    `query:"size"`
}

type RequestToken struct {
	Subject string `json:"subject" form:"subject"`
}
