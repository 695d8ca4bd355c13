package js9

import "context"

// Shapes the display uses in replies.

// Colormap is a colormap selection with its contrast/bias pair.
type Colormap struct {
	Colormap string  `json:"colormap"`
	Contrast float64 `json:"contrast"`
	Bias     float64 `json:"bias"`
}

// Pan is a pan position in image coordinates.
type Pan struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Scale is a scaling algorithm with its clipping limits.
type Scale struct {
	Scale string  `json:"scale"`
	Min   float64 `json:"scalemin"`
	Max   float64 `json:"scalemax"`
}

// WCSPos is a sky position.
type WCSPos struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
	Sys string  `json:"sys"`
	Str string  `json:"str"`
}

// PixPos is an image position.
type PixPos struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Str string  `json:"str"`
}

// ImageDataInfo is the auxiliary information GetImageData returns about the
// current image.
type ImageDataInfo struct {
	ID     string         `json:"id"`
	File   string         `json:"file"`
	FITS   string         `json:"fits"`
	Source string         `json:"source"`
	Imtab  string         `json:"imtab"`
	Width  int            `json:"width"`
	Height int            `json:"height"`
	Bitpix int            `json:"bitpix"`
	Header map[string]any `json:"header"`
}

// Loading and image management.

// Load loads an image into the display: a URL or path the page can fetch,
// an encoded FITS file, or an image envelope.
func (c *Client) Load(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "Load", args...)
}

// LoadProxy loads a remote URL via the helper's proxy.
func (c *Client) LoadProxy(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "LoadProxy", args...)
}

// GetStatus reports the processing status of an image ("processing",
// "loading", "error", "complete", ...).
func (c *Client) GetStatus(ctx context.Context, args ...any) (string, error) {
	var s string
	err := c.invokeInto(ctx, &s, "GetStatus", args...)
	return s, err
}

// GetLoadStatus reports the load status of an image.
func (c *Client) GetLoadStatus(ctx context.Context, args ...any) (string, error) {
	var s string
	err := c.invokeInto(ctx, &s, "GetLoadStatus", args...)
	return s, err
}

// DisplayImage re-displays the current image.
func (c *Client) DisplayImage(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "DisplayImage", args...)
}

// RefreshImage re-reads image data and refreshes the display.
func (c *Client) RefreshImage(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "RefreshImage", args...)
}

// CloseImage closes the current image.
func (c *Client) CloseImage(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "CloseImage", args...)
}

// GetImageData returns image data and info; pass false to skip the pixels,
// or "array"/"base64" to choose the pixel encoding. GetImage decodes the
// pixels into a buffer.
func (c *Client) GetImageData(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "GetImageData", args...)
}

// ImageInfo returns the current image's auxiliary info without its pixels.
func (c *Client) ImageInfo(ctx context.Context) (ImageDataInfo, error) {
	var info ImageDataInfo
	err := c.invokeInto(ctx, &info, "GetImageData", false)
	return info, err
}

// GetDisplayData returns image info for every image in the display.
func (c *Client) GetDisplayData(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "GetDisplayData", args...)
}

// DisplayExtension displays an extension of a multi-extension FITS file.
func (c *Client) DisplayExtension(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "DisplayExtension", args...)
}

// DisplaySection extracts and displays a section of the current image.
func (c *Client) DisplaySection(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "DisplaySection", args...)
}

// DisplaySlice displays a slice of a 3D FITS cube.
func (c *Client) DisplaySlice(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "DisplaySlice", args...)
}

// MoveToDisplay moves the current image to another display.
func (c *Client) MoveToDisplay(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "MoveToDisplay", args...)
}

// BlendImage sets image blending parameters.
func (c *Client) BlendImage(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "BlendImage", args...)
}

// SyncImages keeps operations on the current image in sync with other
// images.
func (c *Client) SyncImages(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SyncImages", args...)
}

// UnsyncImages undoes SyncImages.
func (c *Client) UnsyncImages(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "UnsyncImages", args...)
}

// Colormaps.

func (c *Client) GetColormap(ctx context.Context) (Colormap, error) {
	var cm Colormap
	err := c.invokeInto(ctx, &cm, "GetColormap")
	return cm, err
}

// SetColormap sets the colormap by name, optionally with contrast and bias.
func (c *Client) SetColormap(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetColormap", args...)
}

// AddColormap adds a named colormap to the display.
func (c *Client) AddColormap(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "AddColormap", args...)
}

// LoadColormap loads a colormap definition file.
func (c *Client) LoadColormap(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "LoadColormap", args...)
}

func (c *Client) GetRGBMode(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "GetRGBMode", args...)
}

func (c *Client) SetRGBMode(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetRGBMode", args...)
}

func (c *Client) GetOpacity(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "GetOpacity", args...)
}

func (c *Client) SetOpacity(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetOpacity", args...)
}

// Pan, zoom, scale, orientation.

func (c *Client) GetZoom(ctx context.Context) (float64, error) {
	var z float64
	err := c.invokeInto(ctx, &z, "GetZoom")
	return z, err
}

// SetZoom sets the zoom: a factor, or "in", "out", "toFit".
func (c *Client) SetZoom(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetZoom", args...)
}

func (c *Client) GetPan(ctx context.Context) (Pan, error) {
	var p Pan
	err := c.invokeInto(ctx, &p, "GetPan")
	return p, err
}

// SetPan pans to image coordinates x, y.
func (c *Client) SetPan(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetPan", args...)
}

// AlignPanZoom aligns the display's pan and zoom to another image.
func (c *Client) AlignPanZoom(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "AlignPanZoom", args...)
}

func (c *Client) GetScale(ctx context.Context) (Scale, error) {
	var s Scale
	err := c.invokeInto(ctx, &s, "GetScale")
	return s, err
}

// SetScale sets the scaling algorithm, optionally with clipping limits.
func (c *Client) SetScale(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetScale", args...)
}

func (c *Client) GetFlip(ctx context.Context) (string, error) {
	var f string
	err := c.invokeInto(ctx, &f, "GetFlip")
	return f, err
}

// SetFlip flips the image around the "x" or "y" axis.
func (c *Client) SetFlip(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetFlip", args...)
}

func (c *Client) GetRotate(ctx context.Context) (float64, error) {
	var r float64
	err := c.invokeInto(ctx, &r, "GetRotate")
	return r, err
}

// SetRotate rotates the image to the given angle in degrees.
func (c *Client) SetRotate(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetRotate", args...)
}

func (c *Client) GetRot90(ctx context.Context) (float64, error) {
	var r float64
	err := c.invokeInto(ctx, &r, "GetRot90")
	return r, err
}

// SetRot90 rotates the image by a multiple of 90 degrees.
func (c *Client) SetRot90(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetRot90", args...)
}

// Params and positions.

// GetParam reads one image parameter by name.
func (c *Client) GetParam(ctx context.Context, name string) (Result, error) {
	return c.Invoke(ctx, "GetParam", name)
}

// SetParam sets one image parameter, returning the previous value.
func (c *Client) SetParam(ctx context.Context, name string, value any) (Result, error) {
	return c.Invoke(ctx, "SetParam", name, value)
}

// GetValPos reports whether the value/position display is on.
func (c *Client) GetValPos(ctx context.Context) (bool, error) {
	var v bool
	err := c.invokeInto(ctx, &v, "GetValPos")
	return v, err
}

// PixToWCS converts image pixel coordinates to a sky position.
func (c *Client) PixToWCS(ctx context.Context, x, y float64) (WCSPos, error) {
	var pos WCSPos
	err := c.invokeInto(ctx, &pos, "PixToWCS", x, y)
	return pos, err
}

// WCSToPix converts a sky position to image pixel coordinates.
func (c *Client) WCSToPix(ctx context.Context, ra, dec float64) (PixPos, error) {
	var pos PixPos
	err := c.invokeInto(ctx, &pos, "WCSToPix", ra, dec)
	return pos, err
}

func (c *Client) GetWCSUnits(ctx context.Context) (string, error) {
	var u string
	err := c.invokeInto(ctx, &u, "GetWCSUnits")
	return u, err
}

// SetWCSUnits sets the units for WCS display ("degrees", "sexagesimal").
func (c *Client) SetWCSUnits(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetWCSUnits", args...)
}

func (c *Client) GetWCSSys(ctx context.Context) (string, error) {
	var s string
	err := c.invokeInto(ctx, &s, "GetWCSSys")
	return s, err
}

// SetWCSSys sets the WCS system ("FK5", "ICRS", "galactic", ...).
func (c *Client) SetWCSSys(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SetWCSSys", args...)
}

// DisplayMessage writes a message into a display layer.
func (c *Client) DisplayMessage(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "DisplayMessage", args...)
}

// Analysis.

// CountsInRegions calculates background-subtracted counts in regions.
func (c *Client) CountsInRegions(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "CountsInRegions", args...)
}

// GaussBlurData blurs the image data with a gaussian of the given sigma.
func (c *Client) GaussBlurData(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "GaussBlurData", args...)
}

// ReprojectData reprojects the image using the WCS of another image.
func (c *Client) ReprojectData(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "ReprojectData", args...)
}

// RotateData rotates the image data by the given angle in degrees.
func (c *Client) RotateData(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "RotateData", args...)
}

// RunAnalysis runs a server-side analysis task.
func (c *Client) RunAnalysis(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "RunAnalysis", args...)
}

// GetAnalysis lists the analysis tasks available for the current image.
func (c *Client) GetAnalysis(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "GetAnalysis", args...)
}

// Sessions and output.

// SaveSession saves the display session to a file.
func (c *Client) SaveSession(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SaveSession", args...)
}

// LoadSession loads a previously saved session.
func (c *Client) LoadSession(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "LoadSession", args...)
}

// SavePNG saves the display as a PNG file.
func (c *Client) SavePNG(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SavePNG", args...)
}

// SaveJPEG saves the display as a JPEG file.
func (c *Client) SaveJPEG(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SaveJPEG", args...)
}

// GetFITSHeader returns the FITS header of the current image.
func (c *Client) GetFITSHeader(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "GetFITSHeader", args...)
}

// Regions.

// AddRegions adds regions to the region layer.
func (c *Client) AddRegions(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "AddRegions", args...)
}

// GetRegions returns regions as objects.
func (c *Client) GetRegions(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "GetRegions", args...)
}

// ListRegions lists regions in region-file format.
func (c *Client) ListRegions(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "ListRegions", args...)
}

// ChangeRegions changes properties of selected regions.
func (c *Client) ChangeRegions(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "ChangeRegions", args...)
}

// RemoveRegions removes regions from the region layer.
func (c *Client) RemoveRegions(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "RemoveRegions", args...)
}

// SaveRegions saves regions to a file.
func (c *Client) SaveRegions(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "SaveRegions", args...)
}

// LoadRegions loads regions from a file.
func (c *Client) LoadRegions(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "LoadRegions", args...)
}

// Display management.

// ResizeDisplay resizes the display to the given width and height.
func (c *Client) ResizeDisplay(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "ResizeDisplay", args...)
}

// DisplayNextImage displays the next image in the display's image stack.
func (c *Client) DisplayNextImage(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "DisplayNextImage", args...)
}

// CloseDisplay closes all images in the display.
func (c *Client) CloseDisplay(ctx context.Context, args ...any) (Result, error) {
	return c.Invoke(ctx, "CloseDisplay", args...)
}
