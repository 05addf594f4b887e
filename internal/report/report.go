// Package report writes the end-of-batch failure log and builds the summary
// shown to the user.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fechador/internal/processor"
)

// FileName is the failure log written into the output directory.
const FileName = "errores_fechador.txt"

const ruleWidth = 60

// Summary is the terminal view of a completed batch.
type Summary struct {
	Total     int
	Succeeded int
	Failures  []processor.Outcome
	OutputDir string
}

func (s Summary) Failed() int { return len(s.Failures) }

// WriteFailureLog writes the failure log for s and returns its path. Nothing
// is written when the batch had no failures.
func WriteFailureLog(s Summary) (string, error) {
	if len(s.Failures) == 0 {
		return "", nil
	}
	if s.OutputDir == "" {
		return "", errors.New("write failure log: output directory not set")
	}

	path := filepath.Join(s.OutputDir, FileName)
	if err := os.WriteFile(path, Render(s), 0o644); err != nil {
		return "", fmt.Errorf("write failure log: %w", err)
	}
	return path, nil
}

// Render formats the failure log body.
func Render(s Summary) []byte {
	var b bytes.Buffer
	b.WriteString("REPORTE DE ERRORES - Fechador de Fotos\n")
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")
	fmt.Fprintf(&b, "Total de imágenes: %d\n", s.Total)
	fmt.Fprintf(&b, "Procesadas correctamente: %d\n", s.Succeeded)
	fmt.Fprintf(&b, "Con errores: %d\n\n", len(s.Failures))
	b.WriteString(strings.Repeat("=", ruleWidth) + "\n\n")

	for i, f := range s.Failures {
		fmt.Fprintf(&b, "ERROR %d:\n", i+1)
		fmt.Fprintf(&b, "Archivo: %s\n", f.Source)
		fmt.Fprintf(&b, "Detalle: %s\n", f.Detail)
		b.WriteString(strings.Repeat("-", ruleWidth) + "\n\n")
	}
	return b.Bytes()
}

// Message is the closing text for a completed batch. logErr is the result of
// WriteFailureLog; a failed write is reported as a warning only.
func Message(s Summary, logErr error) string {
	var b strings.Builder
	b.WriteString("Proceso terminado\n\n")
	fmt.Fprintf(&b, "Procesadas correctamente: %d de %d", s.Succeeded, s.Total)
	fmt.Fprintf(&b, "\n\nCarpeta de salida:\n%s", s.OutputDir)

	if len(s.Failures) > 0 {
		fmt.Fprintf(&b, "\n\n⚠ Errores: %d", len(s.Failures))
		if logErr != nil {
			fmt.Fprintf(&b, "\nNo se pudo escribir %s: %v", FileName, logErr)
		} else {
			fmt.Fprintf(&b, "\nVer: %s", FileName)
		}
	}
	return b.String()
}

// FatalMessage is the text for a batch that aborted.
func FatalMessage(detail string, processed, total int) string {
	return fmt.Sprintf("Error en el procesamiento:\n\n%s\n\nProcesadas: %d de %d", detail, processed, total)
}
