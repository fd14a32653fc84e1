package console_test

import (
	"os"

	"github.com/vnykmshr/chanflow/pkg/streaming/console"
)

func Example() {
	out := console.New(os.Stdout)

	_ = out.Topic("Countries")
	for _, country := range []string{"Peru", "Chile"} {
		_ = out.Printf("visiting %s", country)
	}
	_ = out.Close()
	// Output:
	// -----------------
	// --- Countries ---
	// -----------------
	// visiting Peru
	// visiting Chile
}
