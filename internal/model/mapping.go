package model

// Mapping links a generated thumbnail to the source image it was made from.
type Mapping struct {
	// Name is the thumbnail file name, e.g. "c.jpg".
	Name string `json:"name"`

	// Source is the absolute path of the original image.
	Source string `json:"source"`

	// Orientation is the EXIF orientation (1-8) applied while rendering.
	// 1 means the image was already upright or carried no EXIF data.
	Orientation int `json:"orientation"`
}
