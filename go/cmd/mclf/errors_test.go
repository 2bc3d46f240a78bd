package main

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestPrintError(t *testing.T) {
	err := errors.Wrap(errors.New("truncated MCLF image"), "ta.mclf")

	var buf bytes.Buffer
	printError(&buf, err, false)
	require.Equal(t, "Error: ta.mclf: truncated MCLF image\n", buf.String())

	buf.Reset()
	printError(&buf, err, true)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Equal(t, "Error: ta.mclf: truncated MCLF image", lines[0])
	require.Equal(t, strings.Repeat("-", 40), lines[1])
	require.Greater(t, len(lines), 2)
	require.Contains(t, buf.String(), "errors_test.go:")
	require.Contains(t, buf.String(), "TestPrintError()")
}

func TestPrintErrorNoStack(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, fmt.Errorf("open ta.mclf: no such file"), true)
	require.Equal(t, "Error: open ta.mclf: no such file\n", buf.String())
}
