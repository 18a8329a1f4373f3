package configloader

import (
	"encoding/json"
	"fmt"
	"io"
)

// Redactor отдаёт копию конфига без секретов (токенов, паролей).
type Redactor interface {
	Redacted() interface{}
}

// PrintConfig выводит конфиг в читаемом виде, скрывая секреты, если конфиг
// реализует Redactor.
func PrintConfig(w io.Writer, v interface{}) {
	if r, ok := v.(Redactor); ok {
		v = r.Redacted()
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "configloader: marshal config: %v\n", err)
		return
	}
	fmt.Fprintln(w, "Loaded configuration:")
	fmt.Fprintln(w, string(b))
}
