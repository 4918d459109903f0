// Package registry maps model selections to download sources and lists
// weight files already present in the local cache.
package registry

import (
	"fmt"
	"strings"

	"localcode/pkg/types"
)

// QuantPublisher is the hub namespace used for quantized repos.
const QuantPublisher = "bartowski"

// Resolve maps a selection to its download target. It performs no I/O and
// never fails: a quantization always takes the dynamic naming path, otherwise
// the static catalog is consulted and unknown names get the default entry.
func Resolve(sel types.ModelSelection) types.DownloadTarget {
	if sel.HasQuant() {
		base := Basename(sel.Name)
		return types.DownloadTarget{
			RepoID:  fmt.Sprintf("%s/%s-GGUF", QuantPublisher, base),
			FileRef: fmt.Sprintf("%s-%s.gguf", base, sel.Quant),
		}
	}
	e, ok := lookup(sel.Name)
	if !ok {
		e = defaultEntry()
	}
	return types.DownloadTarget{FileRef: e.URL}
}

// ResolveAll resolves selections preserving their order.
func ResolveAll(sels []types.ModelSelection) []types.DownloadTarget {
	out := make([]types.DownloadTarget, 0, len(sels))
	for _, s := range sels {
		out = append(out, Resolve(s))
	}
	return out
}

// Basename returns the second '/'-delimited segment of name when present,
// else name itself. "a/b/c" yields "b".
func Basename(name string) string {
	parts := strings.Split(name, "/")
	if len(parts) > 1 {
		return parts[1]
	}
	return name
}
