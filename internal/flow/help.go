package flow

import (
	"strings"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

const (
	labelConnect     = "Yes, connect me"
	labelNoThanks    = "No thanks"
	labelSendGuide   = "Yes, send guide"
	labelRecommend   = "Yes, recommend"
	labelGeneralInfo = "Just general info"
	labelDIY         = "DIY"
	labelPro         = "Professional"
	legalOther       = "Other"
)

var helpCategories = []string{CategoryRealEstate, CategoryMaintenance, CategoryLegal, CategoryOther}

func newGetHelpRouter(reg *Registry) *Router {
	return NewRouter(models.FlowGetHelp, reg,
		Ask("How can we assist you today?", helpCategories...),
		[]Route{
			{Label: CategoryRealEstate, Flow: models.FlowHelpRealEstate},
			{Label: CategoryMaintenance, Flow: models.FlowHelpMaintenance},
			{Label: CategoryLegal, Flow: models.FlowHelpLegal},
			{Label: CategoryOther, Flow: models.FlowHelpOther},
		},
		WithCategoryKey(models.KeyHelpCategory),
		WithInvalidPrompt(Ask("Please select one of the following help categories:", helpCategories...)),
	)
}

func connectFinal(key models.DataKey, yes, no string) Branch {
	return Branch{
		On:      key,
		Cases:   []Case{{Label: labelConnect, Prompt: Say(yes)}},
		Default: Say(no),
	}
}

func newRealEstateFlow() *TableFlow {
	opts := []string{labelConnect, labelNoThanks}
	return MustTableFlow(models.FlowHelpRealEstate, models.EventKindHelpRequest, helpColumns,
		StepSpec{
			Prompt: Ask("What's your question about?", "Buying", "Selling", "Renting", "Financing"),
		},
		StepSpec{
			AnswerKey: models.KeyRealEstateTopic,
			Prompt: Branch{
				On: models.KeyRealEstateTopic,
				Cases: []Case{
					{Label: "Buying", Prompt: Ask("Buying a home is a major decision. Swift Showings can help you navigate the process without the high fees of traditional agents. Some key things to consider are your budget, location preferences, and financing options. Would you like to speak with one of our home buying experts?", opts...)},
					{Label: "Selling", Prompt: Ask("Swift Showings can help you sell your home with lower fees than traditional agents. We provide professional photos, listing services, and connect you directly with interested buyers. Would you like to speak with one of our home selling experts?", opts...)},
					{Label: "Renting", Prompt: Ask("Finding the right rental property can be challenging. Swift Showings can help you find apartments, houses, or townhomes that match your budget and preferences. We also offer roommate-finding services if needed. Would you like to speak with one of our rental specialists?", opts...)},
					{Label: "Financing", Prompt: Ask("Financing a home purchase involves understanding mortgage options, interest rates, and qualification requirements. Swift Showings partners with several lenders who can help you explore your options. Would you like to speak with one of our financing partners?", opts...)},
				},
				Default: Ask("We'd be happy to answer your real estate questions. Would you like to speak with one of our experts?", opts...),
			},
		},
		StepSpec{
			AnswerKey: models.KeyWantsConnection,
			Terminal:  Always,
			Prompt: connectFinal(models.KeyWantsConnection,
				"Great! One of our experts will reach out to you shortly via Messenger. Is there anything specific you'd like them to prepare for your conversation?",
				"No problem! If you have any other questions about real estate, feel free to ask anytime. Is there something else I can help you with today?"),
		},
	)
}

func newMaintenanceFlow() *TableFlow {
	diy := []string{labelSendGuide, labelNoThanks}
	pro := []string{labelRecommend, labelNoThanks}

	diyIssues := Branch{
		On: models.KeyMaintenanceIssue,
		Cases: []Case{
			{Label: "Plumbing", Prompt: Ask("For common plumbing issues, we recommend checking for leaks at pipe connections, ensuring proper water pressure, and using plungers for simple clogs. Would you like us to send you our DIY plumbing troubleshooting guide?", diy...)},
			{Label: "Electrical", Prompt: Ask("For electrical issues, always prioritize safety. Check if the issue is isolated to one circuit by examining your breaker panel. For simple fixture issues, ensure the power is OFF before attempting any work. Would you like us to send you our DIY electrical safety guide?", diy...)},
			{Label: "HVAC", Prompt: Ask("For HVAC maintenance, regularly replace filters, ensure vents are unblocked, and check thermostat settings. Simple issues can often be resolved by cleaning components and ensuring proper airflow. Would you like us to send you our HVAC maintenance checklist?", diy...)},
			{Label: "Structural", Prompt: Ask("For minor structural issues like small cracks or loose fixtures, monitoring the problem is important. Document with photos to track any changes. Would you like us to send you our guide for identifying serious vs. minor structural concerns?", diy...)},
			{Label: "Other", Prompt: Ask("We have various DIY guides for home maintenance and repairs. What specific issue are you trying to address?", diy...)},
		},
		Default: Ask("We have various DIY guides that might help. Would you like us to send you some resources?", diy...),
	}
	proIssues := Branch{
		On: models.KeyMaintenanceIssue,
		Cases: []Case{
			{Label: "Plumber", Prompt: Ask("We work with licensed plumbers who can handle everything from leaks to installations. Our network of professionals offers competitive rates and quality service. Would you like us to recommend a plumber in your area?", pro...)},
			{Label: "Electrician", Prompt: Ask("Our network includes certified electricians who can handle repairs, installations, and inspections. They offer competitive rates and reliable service. Would you like us to recommend an electrician in your area?", pro...)},
			{Label: "HVAC Technician", Prompt: Ask("We partner with HVAC specialists who can handle maintenance, repairs, and installations for heating and cooling systems. Would you like us to recommend an HVAC technician in your area?", pro...)},
			{Label: "Contractor", Prompt: Ask("Our contractor network includes professionals for renovations, repairs, and custom work. They offer fair pricing and quality craftsmanship. Would you like us to recommend a contractor in your area?", pro...)},
			{Label: "Other", Prompt: Ask("We have a wide network of home service professionals. What specific type of service provider do you need?", pro...)},
		},
		Default: Ask("We can recommend qualified professionals for your needs. Would you like us to connect you with a service provider?", pro...),
	}

	return MustTableFlow(models.FlowHelpMaintenance, models.EventKindHelpRequest, helpColumns,
		StepSpec{
			Prompt: Ask("Are you looking for DIY solutions or a professional service?", labelDIY, labelPro),
		},
		StepSpec{
			AnswerKey: models.KeyMaintenancePreference,
			Prompt: Branch{
				On: models.KeyMaintenancePreference,
				Cases: []Case{
					{Label: labelDIY, Prompt: Ask("What type of maintenance issue are you trying to address?",
						"Plumbing", "Electrical", "HVAC", "Structural", "Other")},
				},
				Default: Ask("What type of professional service do you need?",
					"Plumber", "Electrician", "HVAC Technician", "Contractor", "Other"),
			},
		},
		StepSpec{
			AnswerKey: models.KeyMaintenanceIssue,
			Prompt: Branch{
				On:      models.KeyMaintenancePreference,
				Cases:   []Case{{Label: labelDIY, Prompt: diyIssues}},
				Default: proIssues,
			},
		},
		StepSpec{
			AnswerKey: models.KeyWantsResources,
			Terminal:  Always,
			Prompt: PromptFunc(func(s *session.Session) models.Reply {
				if !strings.HasPrefix(s.AnswerOr(models.KeyWantsResources, ""), "Yes") {
					return models.Reply{Text: "No problem! If you need maintenance or repair assistance in the future, we're here to help. Is there something else I can assist you with today?"}
				}
				if Match(s.AnswerOr(models.KeyMaintenancePreference, ""), labelDIY).Recognized() {
					return models.Reply{Text: "We'll send you the relevant DIY guide via Messenger shortly. If you find you need professional help after trying the DIY approach, just let us know. Is there anything else you need help with today?"}
				}
				return models.Reply{Text: "We'll have one of our service partners contact you soon to provide a quote and schedule service. Is there anything specific about your maintenance needs that we should share with them?"}
			}),
		},
	)
}

func newLegalFlow() *TableFlow {
	opts := []string{labelConnect, labelGeneralInfo}
	final := connectFinal(models.KeyWantsLegalReferral,
		"We'll have a legal specialist contact you soon via Messenger. They can provide more specific guidance based on your situation and location. Is there anything else about your legal concern that we should share with them?",
		"We understand. For general information, it's important to know that real estate legal matters are governed by both state and local laws. We recommend researching the specific regulations for your location or consulting free legal resources available through housing authorities. Is there something specific you'd like to understand better?")

	return MustTableFlow(models.FlowHelpLegal, models.EventKindHelpRequest, helpColumns,
		StepSpec{
			Prompt: Ask("Do you need help with contracts, tenant rights, or something else?",
				"Contracts", "Tenant Rights", legalOther),
		},
		StepSpec{
			AnswerKey: models.KeyLegalTopic,
			Prompt: Branch{
				On: models.KeyLegalTopic,
				Cases: []Case{
					{Label: "Contracts", Prompt: Ask("Real estate contracts can be complex legal documents. While we can provide general information, specific legal advice should come from a qualified attorney. We can offer general guidance on standard contract terms and what to look for. Would you like us to connect you with a real estate attorney?", opts...)},
					{Label: "Tenant Rights", Prompt: Ask("Tenant rights vary by location, but generally cover issues like security deposits, maintenance responsibilities, privacy, and eviction procedures. We can provide general information, but specific legal advice requires an attorney. Would you like us to connect you with a tenant rights specialist?", opts...)},
					{Label: legalOther, Prompt: Say("Legal matters in real estate can cover many areas. To provide the most helpful guidance, could you tell us more about your specific legal concern?")},
				},
				Default: Ask("For specific legal advice, we recommend consulting with a qualified attorney. Would you like us to connect you with a real estate legal specialist?", opts...),
			},
		},
		StepSpec{
			AnswerKeyFor: func(s *session.Session) models.DataKey {
				if Match(s.AnswerOr(models.KeyLegalTopic, ""), legalOther).Recognized() {
					return models.KeySpecificLegalConcern
				}
				return models.KeyWantsLegalReferral
			},
			Terminal: Unless(models.KeyLegalTopic, legalOther),
			Prompt: Branch{
				On: models.KeyLegalTopic,
				Cases: []Case{
					{Label: legalOther, Prompt: Ask("Thank you for explaining your concern. While we can provide general information, specific legal advice should come from a qualified attorney. Would you like us to connect you with a legal specialist who can help with this matter?", opts...)},
				},
				Default: final,
			},
		},
		StepSpec{
			AnswerKey: models.KeyWantsLegalReferral,
			Terminal:  Always,
			Prompt:    final,
		},
	)
}

func newOtherHelpFlow() *TableFlow {
	return MustTableFlow(models.FlowHelpOther, models.EventKindHelpRequest, helpColumns,
		StepSpec{
			Prompt: Say("Please type your question or describe what you need help with, and we'll connect you with a live agent who can assist you."),
		},
		StepSpec{
			AnswerKey: models.KeyOtherQuestion,
			Terminal:  Always,
			Prompt:    Say("Thank you for your question. We've recorded it and will have a live agent follow up with you as soon as possible, usually within 1 business day. Is there anything else you'd like to add to your request?"),
		},
	)
}
