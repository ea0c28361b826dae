package panel

import "fmt"

// DragKind names a native drag event.
type DragKind string

const (
	DragEnter DragKind = "dragenter"
	DragOver  DragKind = "dragover"
	DragLeave DragKind = "dragleave"
	DragDrop  DragKind = "drop"
)

// ParseDragKind validates an event name coming from the page.
func ParseDragKind(s string) (DragKind, error) {
	switch k := DragKind(s); k {
	case DragEnter, DragOver, DragLeave, DragDrop:
		return k, nil
	}
	return "", fmt.Errorf("unknown drag event %q", s)
}
