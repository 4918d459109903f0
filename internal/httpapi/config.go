package httpapi

// CORSOptions configures cross-origin access to the status surface, e.g. for
// an editor extension polling /status from a webview.
type CORSOptions struct {
	Origins []string
	Methods []string
	Headers []string
}

// corsOpts is nil unless enabled; NewMux then installs no CORS middleware.
var corsOpts *CORSOptions

// SetCORS enables CORS with o, or disables it when o is nil or lists no origins.
// Methods default to GET and OPTIONS.
func SetCORS(o *CORSOptions) {
	if o == nil || len(o.Origins) == 0 {
		corsOpts = nil
		return
	}
	c := CORSOptions{
		Origins: append([]string(nil), o.Origins...),
		Methods: append([]string(nil), o.Methods...),
		Headers: append([]string(nil), o.Headers...),
	}
	if len(c.Methods) == 0 {
		c.Methods = []string{"GET", "OPTIONS"}
	}
	corsOpts = &c
}
