package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProcessor() *Processor {
	return &Processor{chunkSize: 100, chunkOverlap: 20}
}

func TestCleanHTMLStripsChrome(t *testing.T) {
	html := `
	<html>
	<head><title>PSU-X Service Manual</title><style>body{}</style></head>
	<body>
	<nav>menu</nav>
	<script>alert(1)</script>
	<p>Check the regulator feedback loop.</p>
	<footer>copyright</footer>
	</body>
	</html>`

	text := testProcessor().cleanHTML(html)

	assert.Contains(t, text, "Check the regulator feedback loop.")
	assert.NotContains(t, text, "menu")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "copyright")
}

func TestExtractTitle(t *testing.T) {
	p := testProcessor()

	assert.Equal(t, "PSU-X Manual", p.extractTitle("<html><head><title>PSU-X Manual</title></head></html>"))
	assert.Equal(t, "Fallback Heading", p.extractTitle("<html><body><h1>Fallback Heading</h1></body></html>"))
	assert.Equal(t, "Untitled", p.extractTitle("<html><body><p>nothing</p></body></html>"))
}

func TestInferDocType(t *testing.T) {
	assert.Equal(t, "troubleshooting", inferDocType("Fault isolation procedure for the PSU"))
	assert.Equal(t, "calibration", inferDocType("Annual calibration of the output stage"))
	assert.Equal(t, "maintenance", inferDocType("Preventive maintenance schedule"))
	assert.Equal(t, "service_manual", inferDocType("General description of the device"))
}

func TestChunkTextCoversAllWords(t *testing.T) {
	p := testProcessor()

	words := make([]string, 200)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := p.chunkText(text)

	require.NotEmpty(t, chunks)
	assert.Greater(t, len(chunks), 1, "long input splits into multiple chunks")
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), p.chunkSize+10, "chunks stay near the configured size")
	}
}

func TestChunkTextEmpty(t *testing.T) {
	assert.Nil(t, testProcessor().chunkText("   "))
}
