package js9

import "sort"

// PayloadDir marks operations whose arguments or results go through the
// payload codec.
type PayloadDir int

const (
	PayloadNone PayloadDir = iota
	// PayloadSend: pixel buffer and FITS document arguments are encoded
	// into wire envelopes before sending.
	PayloadSend
	// PayloadRecv: the result can carry image data for the codec to decode.
	PayloadRecv
)

// Descriptor describes one operation the display accepts. MaxArgs caps the
// positional argument count when positive; zero leaves it unchecked.
type Descriptor struct {
	Name    string
	MaxArgs int
	Payload PayloadDir
}

// fallbackOps is the display's public API, used when the helper cannot
// advertise its operations (HTTP transport, or an old helper). Argument
// caps are declared only where the API defines a fixed signature.
var fallbackOps = []Descriptor{
	{Name: "Load", Payload: PayloadSend},
	{Name: "LoadWindow"},
	{Name: "LoadProxy"},
	{Name: "GetStatus"},
	{Name: "GetLoadStatus"},
	{Name: "DisplayImage"},
	{Name: "RefreshImage", Payload: PayloadSend},
	{Name: "CloseImage"},
	{Name: "GetImageData", Payload: PayloadRecv},
	{Name: "GetDisplayData"},
	{Name: "DisplayPlugin"},
	{Name: "DisplayExtension"},
	{Name: "DisplaySection"},
	{Name: "DisplaySlice"},
	{Name: "MoveToDisplay", MaxArgs: 1},
	{Name: "BlendImage"},
	{Name: "SyncImages"},
	{Name: "UnsyncImages"},
	{Name: "MaskImage"},
	{Name: "BlendDisplay", MaxArgs: 1},
	{Name: "GetColormap"},
	{Name: "SetColormap", MaxArgs: 3},
	{Name: "SaveColormap"},
	{Name: "AddColormap", MaxArgs: 2},
	{Name: "LoadColormap", MaxArgs: 1},
	{Name: "GetRGBMode"},
	{Name: "SetRGBMode", MaxArgs: 1},
	{Name: "GetOpacity"},
	{Name: "SetOpacity", MaxArgs: 1},
	{Name: "GetZoom"},
	{Name: "SetZoom", MaxArgs: 1},
	{Name: "GetPan"},
	{Name: "SetPan", MaxArgs: 2},
	{Name: "AlignPanZoom", MaxArgs: 1},
	{Name: "GetScale"},
	{Name: "SetScale", MaxArgs: 3},
	{Name: "GetFlip"},
	{Name: "SetFlip", MaxArgs: 1},
	{Name: "GetRotate"},
	{Name: "SetRotate", MaxArgs: 1},
	{Name: "GetRot90"},
	{Name: "SetRot90", MaxArgs: 1},
	{Name: "GetParam", MaxArgs: 1},
	{Name: "SetParam", MaxArgs: 2},
	{Name: "GetValPos"},
	{Name: "PixToWCS", MaxArgs: 2},
	{Name: "WCSToPix", MaxArgs: 2},
	{Name: "ImageToDisplayPos", MaxArgs: 2},
	{Name: "DisplayToImagePos", MaxArgs: 2},
	{Name: "ImageToLogicalPos", MaxArgs: 2},
	{Name: "LogicalToImagePos", MaxArgs: 2},
	{Name: "GetWCSUnits"},
	{Name: "SetWCSUnits", MaxArgs: 1},
	{Name: "GetWCSSys"},
	{Name: "SetWCSSys", MaxArgs: 1},
	{Name: "DisplayMessage"},
	{Name: "DisplayCoordGrid"},
	{Name: "CountsInRegions"},
	{Name: "GaussBlurData", MaxArgs: 1},
	{Name: "ImarithData"},
	{Name: "ShiftData", MaxArgs: 3},
	{Name: "FilterRGBImage"},
	{Name: "ReprojectData"},
	{Name: "RotateData", MaxArgs: 1},
	{Name: "SaveSession", MaxArgs: 1},
	{Name: "LoadSession", MaxArgs: 1},
	{Name: "NewShapeLayer"},
	{Name: "ShowShapeLayer"},
	{Name: "ToggleShapeLayers"},
	{Name: "ActiveShapeLayer"},
	{Name: "AddShapes"},
	{Name: "RemoveShapes"},
	{Name: "GetShapes"},
	{Name: "ChangeShapes"},
	{Name: "CopyShapes"},
	{Name: "SelectShapes"},
	{Name: "UnselectShapes"},
	{Name: "GroupShapes"},
	{Name: "UngroupShapes"},
	{Name: "AddRegions"},
	{Name: "GetRegions"},
	{Name: "ListRegions"},
	{Name: "ListGroups"},
	{Name: "EditRegions"},
	{Name: "ChangeRegions"},
	{Name: "CopyRegions"},
	{Name: "RemoveRegions"},
	{Name: "UnremoveRegions"},
	{Name: "SaveRegions"},
	{Name: "SelectRegions"},
	{Name: "UnselectRegions"},
	{Name: "GroupRegions"},
	{Name: "UngroupRegions"},
	{Name: "ChangeRegionTags"},
	{Name: "ToggleRegionTags"},
	{Name: "LoadRegions"},
	{Name: "LoadCatalog"},
	{Name: "SaveCatalog"},
	{Name: "GetAnalysis"},
	{Name: "RunAnalysis"},
	{Name: "SavePNG"},
	{Name: "SaveJPEG"},
	{Name: "GetToolbar"},
	{Name: "SetToolbar"},
	{Name: "UploadFITSFile"},
	{Name: "GetFITSHeader", MaxArgs: 1},
	{Name: "Print"},
	{Name: "DisplayNextImage"},
	{Name: "CreateMosaic"},
	{Name: "ResizeDisplay"},
	{Name: "GatherDisplay"},
	{Name: "SeparateDisplay"},
	{Name: "CenterDisplay"},
	{Name: "CloseDisplay"},
	{Name: "RenameDisplay"},
	{Name: "RemoveDisplay"},
	{Name: "DisplayHelp"},
	{Name: "LightWindow"},

	// command-style shortcuts: a bare call reads, arguments write
	{Name: "analysis"},
	{Name: "colormap"},
	{Name: "cmap"},
	{Name: "colormaps"},
	{Name: "helper"},
	{Name: "image"},
	{Name: "images"},
	{Name: "load"},
	{Name: "pan"},
	{Name: "regcnts"},
	{Name: "region"},
	{Name: "regions"},
	{Name: "resize"},
	{Name: "scale"},
	{Name: "scales"},
	{Name: "wcssys"},
	{Name: "wcsu"},
	{Name: "wcssystems"},
	{Name: "wcsunits"},
	{Name: "zoom"},
}

// registry is the set of operations a client will dispatch: the built-in
// list unioned with whatever the helper advertised at connect time.
type registry struct {
	ops map[string]Descriptor
}

func newRegistry(advertised []string) *registry {
	r := &registry{ops: make(map[string]Descriptor, len(fallbackOps)+len(advertised))}
	for _, d := range fallbackOps {
		r.ops[d.Name] = d
	}
	for _, name := range advertised {
		if _, ok := r.ops[name]; !ok {
			r.ops[name] = Descriptor{Name: name}
		}
	}
	return r
}

func (r *registry) lookup(name string) (Descriptor, bool) {
	d, ok := r.ops[name]
	return d, ok
}

func (r *registry) names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
