package auth

// PopupFeatures sizes the authorization popup. The page centers it over the opener.
type PopupFeatures struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultPopup is the popup size used for the authorization page.
var DefaultPopup = PopupFeatures{Width: 450, Height: 730}

// Window opens a named popup navigated to url.
type Window interface {
	OpenPopup(url, name string, features PopupFeatures) error
}
