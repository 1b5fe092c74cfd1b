package flashcard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vytor/reviewsync/internal/models"
)

var ErrUnknownResponse = errors.New("unknown response")

// GradeForResponse maps the study UI vocabulary onto the four-point scale.
// "easy" counts as Good while the card is still New.
func GradeForResponse(response string, state models.State) (models.Grade, error) {
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "forgot", "again":
		return models.GradeAgain, nil
	case "hard":
		return models.GradeHard, nil
	case "medium", "good":
		return models.GradeGood, nil
	case "easy":
		if state == models.StateNew {
			return models.GradeGood, nil
		}
		return models.GradeEasy, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownResponse, response)
	}
}
