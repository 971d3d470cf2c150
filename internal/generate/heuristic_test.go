package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/ansuz/internal/models"
)

func TestHeuristicLinePairs(t *testing.T) {
	text := "Capital of France? Paris\nGo -> compiled language\nHTTP: protocol\nTCP => transport\nUDP - datagrams"
	cards := heuristicCards(text, "en")
	require.Len(t, cards, 3)
	assert.Equal(t, "Capital of France?", cards[0].Front)
	assert.Equal(t, "Paris", cards[0].Back)
	assert.Equal(t, "Go", cards[1].Front)
	assert.Equal(t, "compiled language", cards[1].Back)
	assert.Equal(t, "HTTP", cards[2].Front)
	for _, c := range cards {
		assert.Equal(t, "proposal (en)", c.Extra)
	}
}

func TestHeuristicYearCloze(t *testing.T) {
	cards := heuristicCards("The Berlin Wall fell in 1989", "en")
	require.Len(t, cards, 1)
	assert.Equal(t, models.NoteCloze, cards[0].Type)
	assert.Equal(t, "The Berlin Wall fell in {{c1::1989}}", cards[0].Cloze)
}

func TestHeuristicPhraseCloze(t *testing.T) {
	cards := heuristicCards("Photosynthesis converts light energy", "en")
	require.Len(t, cards, 1)
	assert.Equal(t, "{{c1::Photosynthesis converts}} light energy", cards[0].Cloze)
}

func TestHeuristicTermDefinition(t *testing.T) {
	cards := heuristicCards("Entropy.", "de")
	require.Len(t, cards, 1)
	assert.Equal(t, models.NoteBasic, cards[0].Type)
	assert.Equal(t, "What is Entropy?", cards[0].Front)
	assert.Equal(t, "Entropy.", cards[0].Back)
	assert.Equal(t, "proposal (de)", cards[0].Extra)
}

func TestHeuristicEmpty(t *testing.T) {
	assert.Empty(t, heuristicCards(" \n\t ", "en"))
	assert.Empty(t, heuristicCards("...", "en"))
}
