package logging

import (
	"io"
	"os"
)

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout
