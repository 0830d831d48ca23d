package flow

import (
	"fmt"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

// Find Home labels.
const (
	LabelBuy  = "Buy"
	LabelRent = "Rent"
)

func newFindHomeRouter(reg *Registry) *Router {
	return NewRouter(models.FlowFindHome, reg,
		Ask("Great! Are you looking to buy or rent?", LabelBuy, LabelRent),
		[]Route{
			{Label: LabelBuy, Flow: models.FlowFindHomeBuy},
			{Label: LabelRent, Flow: models.FlowFindHomeRent},
		},
		WithCaseInsensitive(),
		WithInvalidPrompt(Ask("Please choose Buy or Rent to continue.", LabelBuy, LabelRent)),
	)
}

func newBuyFlow() *TableFlow {
	return MustTableFlow(models.FlowFindHomeBuy, models.EventKindHomePreference,
		homeColumns("Buy", models.KeyHomeType, models.KeyFinancing),
		StepSpec{
			Prompt: Ask("What type of home are you interested in?",
				"House", "Condo", "Apartment", "Townhome", "Other"),
		},
		StepSpec{
			AnswerKey: models.KeyHomeType,
			Prompt: Ask("What is your budget range?",
				"$100k-$200k", "$200k-$300k", "$300k-$400k", "$400k-$500k", "$500k+"),
		},
		StepSpec{
			AnswerKey: models.KeyBudget,
			Prompt:    Say("What location are you considering? Please type the city and state."),
		},
		StepSpec{
			AnswerKey: models.KeyLocation,
			Prompt: Ask("Do you have financing or need assistance?",
				"Yes, I'm pre-approved", "No, I need financing help"),
		},
		StepSpec{
			AnswerKey: models.KeyFinancing,
			Terminal:  Always,
			Prompt: PromptFunc(func(s *session.Session) models.Reply {
				return models.Reply{Text: fmt.Sprintf(
					"Thank you! We've recorded your preferences for a %s in %s within budget %s.\n\n"+
						"Our team will review available properties and get back to you soon. "+
						"Is there anything specific you're looking for in your new home?",
					s.AnswerOr(models.KeyHomeType, ""),
					s.AnswerOr(models.KeyLocation, ""),
					s.AnswerOr(models.KeyBudget, ""),
				)}
			}),
		},
	)
}

func newRentFlow() *TableFlow {
	return MustTableFlow(models.FlowFindHomeRent, models.EventKindHomePreference,
		homeColumns("Rent", models.KeyPropertyType, models.KeyRoommateService),
		StepSpec{
			Prompt: Ask("What kind of property are you looking for?",
				"Apartment", "House", "Townhome", "Other"),
		},
		StepSpec{
			AnswerKey: models.KeyPropertyType,
			Prompt: Ask("What's your monthly budget?",
				"$500-$1000", "$1000-$1500", "$1500-$2000", "$2000-$2500", "$2500+"),
		},
		StepSpec{
			AnswerKey: models.KeyBudget,
			Prompt:    Say("What area are you interested in? Please type the city and state."),
		},
		StepSpec{
			AnswerKey: models.KeyLocation,
			Prompt:    Ask("Do you need a roommate-finding service?", "Yes", "No"),
		},
		StepSpec{
			AnswerKey: models.KeyRoommateService,
			Terminal:  Always,
			Prompt: PromptFunc(func(s *session.Session) models.Reply {
				return models.Reply{Text: fmt.Sprintf(
					"Thank you! We've recorded your preferences for a %s to rent in %s within a monthly budget of %s.\n\n"+
						"Our rental specialists will review available properties and get back to you soon. "+
						"Is there anything specific you're looking for in your new home?",
					s.AnswerOr(models.KeyPropertyType, ""),
					s.AnswerOr(models.KeyLocation, ""),
					s.AnswerOr(models.KeyBudget, ""),
				)}
			}),
		},
	)
}
