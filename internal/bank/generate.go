package bank

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math/rand"

	"routing-arena/internal/domain"
)

// DefaultTestCount is the number of synthetic questions generated for the test bank.
const DefaultTestCount = 50

var questionStems = []string{
	"Hvordan kan jeg %s i systemet?",
	"Er det mulig å %s fra brukergrensesnittet?",
	"Hva er prosedyren for å %s i regnskapet?",
	"Kan jeg %s uten å kontakte administrator?",
	"Hvilket skjema bruker man for å %s?",
	"Hvor finner jeg %s i menyen?",
	"Hvordan genererer jeg en rapport for %s?",
	"Er det mulig å automatisere %s i systemet?",
	"Hva er riktig kontonummer for %s?",
	"Hvordan håndterer systemet %s?",
}

var operations = []string{
	"registrere en ny leverandør",
	"opprette en faktura",
	"korrigere en posteringsfeil",
	"sette opp automatisk betaling",
	"avstemme kontoer",
	"generere årsregnskap",
	"håndtere merverdiavgift",
	"håndtere utenlandske transaksjoner",
	"sette opp nye ansatte",
	"beregne feriepenger",
	"utføre lønnskjøring",
	"importere bankfiler",
	"eksportere data til revisor",
	"sette opp budsjettet",
	"definere prosjektkoder",
	"håndtere anleggsmidler",
	"bokføre avskrivninger",
	"håndtere valutakurser",
	"sette opp periodisk fakturering",
	"avslutte regnskapsår",
}

// Generate produces count synthetic questions, none when count <= 0. Texts
// may repeat; the rows are returned as they would be written to disk.
func Generate(count int, rnd *rand.Rand) []domain.Question {
	if count < 0 {
		count = 0
	}
	out := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		stem := questionStems[rnd.Intn(len(questionStems))]
		op := operations[rnd.Intn(len(operations))]
		out = append(out, domain.Question{
			Text:          fmt.Sprintf(stem, op),
			ExpectedLabel: domain.TwoClassLabels[rnd.Intn(len(domain.TwoClassLabels))],
		})
	}
	return out
}

// GenerateFile writes count synthetic questions to path and returns the rows written.
func GenerateFile(path string, delimiter rune, count int, rnd *rand.Rand) ([]domain.Question, error) {
	questions := Generate(count, rnd)
	if err := Save(path, delimiter, questions); err != nil {
		return nil, err
	}
	log.Printf("generated %d random questions in %s", count, path)
	return questions, nil
}

// LoadOrGenerate loads path, generating and persisting count questions first
// when the file does not exist. Later loads return the same bank until the file
// is regenerated.
func LoadOrGenerate(path string, delimiter rune, count int, rnd *rand.Rand) (domain.QuestionBank, error) {
	b, err := Load(path, delimiter)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return domain.QuestionBank{}, err
	}
	if _, err := GenerateFile(path, delimiter, count, rnd); err != nil {
		return domain.QuestionBank{}, fmt.Errorf("%w: %w", domain.ErrBankUnavailable, err)
	}
	return Load(path, delimiter)
}
