package flow

import (
	"github.com/BTreeMap/SwiftShowings/internal/models"
)

var savingsCategories = []string{CategoryMortgage, CategoryUtility, CategoryInsurance, CategoryTax}

func newSaveMoneyRouter(reg *Registry) *Router {
	return NewRouter(models.FlowSaveMoney, reg,
		Ask("What type of savings are you looking for?", savingsCategories...),
		[]Route{
			{Label: CategoryMortgage, Flow: models.FlowSavingsMortgage},
			{Label: CategoryUtility, Flow: models.FlowSavingsUtility},
			{Label: CategoryInsurance, Flow: models.FlowSavingsInsurance},
			{Label: CategoryTax, Flow: models.FlowSavingsTax},
		},
		WithCategoryKey(models.KeySavingsCategory),
		WithInvalidPrompt(Ask("Please select one of the following savings categories:", savingsCategories...)),
	)
}

func newMortgageFlow() *TableFlow {
	opts := []string{labelConnect, labelNoThanks}
	return MustTableFlow(models.FlowSavingsMortgage, models.EventKindMoneyRequest, moneyColumns,
		StepSpec{
			Prompt: Ask("Are you refinancing or looking for a new loan?", "Refinance", "New Loan"),
		},
		StepSpec{
			AnswerKey: models.KeyMortgageType,
			Prompt: Branch{
				On: models.KeyMortgageType,
				Cases: []Case{
					{Label: "Refinance", Prompt: Ask("Refinancing can be a great way to lower your monthly payments. Our recommended lenders for refinancing include:\n\n"+
						"• SwiftRate Mortgage: Specializing in quick refinancing with competitive rates\n"+
						"• HomeSaver Loans: Offering no-fee refinancing options\n"+
						"• EasyFi: Digital-first refinancing with streamlined approval process\n\n"+
						"Would you like to connect with a mortgage expert to discuss your refinancing options?", opts...)},
				},
				Default: Ask("Finding the right mortgage for a new home is crucial. Our recommended lenders include:\n\n"+
					"• FirstTime Mortgage: Specializing in first-time homebuyer programs\n"+
					"• ValueRate Home Loans: Offering competitive rates with flexible terms\n"+
					"• SwiftApproval: Known for their quick pre-approval process\n\n"+
					"Would you like to connect with a mortgage expert to discuss your options?", opts...),
			},
		},
		StepSpec{
			AnswerKey: models.KeyWantsMortgageExpert,
			Terminal:  Always,
			Prompt: connectFinal(models.KeyWantsMortgageExpert,
				"Great! One of our mortgage specialists will reach out to you shortly. They'll help you explore the best options to lower your payments. Is there anything specific about your mortgage situation they should know?",
				"No problem! If you decide you'd like to speak with a mortgage expert in the future, just let us know. In the meantime, our blog has some great articles on finding the best mortgage rates. Is there anything else I can help you with today?"),
		},
	)
}

func newUtilityFlow() *TableFlow {
	opts := []string{labelSendGuide, labelNoThanks}
	return MustTableFlow(models.FlowSavingsUtility, models.EventKindMoneyRequest, moneyColumns,
		StepSpec{
			Prompt: Ask("Are you interested in smart home solutions or energy-efficient appliances?",
				"Smart Home", "Appliances", "Both"),
		},
		StepSpec{
			AnswerKey: models.KeyUtilityPreference,
			Prompt: Branch{
				On: models.KeyUtilityPreference,
				Cases: []Case{
					{Label: "Smart Home", Prompt: Ask("Smart home solutions can significantly reduce your utility bills. Some effective options include:\n\n"+
						"• Smart thermostats: Save 10-15% on heating and cooling costs\n"+
						"• Smart lighting: Reduce electricity usage by automatically turning off when not needed\n"+
						"• Smart plugs: Control energy usage of electronics and appliances\n"+
						"• Smart water controllers: Reduce water waste and lower water bills\n\n"+
						"Many utility companies offer rebates for installing these devices. Would you like us to send you our guide on smart home energy savings?", opts...)},
					{Label: "Appliances", Prompt: Ask("Energy-efficient appliances can dramatically reduce your utility bills. Look for ENERGY STAR certified:\n\n"+
						"• Refrigerators: Can save $300+ over their lifetime\n"+
						"• Washing machines: Use 25% less energy and 33% less water\n"+
						"• HVAC systems: Can reduce energy usage by up to 20%\n"+
						"• Water heaters: Tankless options can save up to 30% on water heating\n\n"+
						"Many states offer rebates or tax incentives for energy-efficient upgrades. Would you like us to send you information about rebate programs in your area?", opts...)},
				},
				Default: Ask("Combining smart home technology with energy-efficient appliances creates the biggest impact on utility bills.\n\n"+
					"Smart home solutions:\n"+
					"• Smart thermostats: Save 10-15% on heating and cooling\n"+
					"• Smart lighting and plugs: Reduce electricity waste\n\n"+
					"Energy-efficient appliances:\n"+
					"• ENERGY STAR certified appliances use significantly less energy\n"+
					"• Modern HVAC systems paired with smart controls maximize savings\n\n"+
					"Would you like us to send you our comprehensive guide on reducing utility bills?", opts...),
			},
		},
		StepSpec{
			AnswerKey: models.KeyWantsUtilityGuide,
			Terminal:  Always,
			Prompt: Branch{
				On: models.KeyWantsUtilityGuide,
				Cases: []Case{
					{Label: labelSendGuide, Prompt: Say("Great! We'll send you our guide on reducing utility bills via Messenger. It includes links to current rebate programs and tax incentives for energy-efficient upgrades. Is there anything specific about your home's energy usage you're concerned about?")},
				},
				Default: Say("No problem! If you'd like information about reducing utility bills in the future, just let us know. Is there anything else I can help you with today?"),
			},
		},
	)
}

func newInsuranceFlow() *TableFlow {
	opts := []string{labelConnect, labelNoThanks}
	return MustTableFlow(models.FlowSavingsInsurance, models.EventKindMoneyRequest, moneyColumns,
		StepSpec{
			Prompt: Ask("Do you currently have home insurance?", "Yes", "No", "Shopping Around"),
		},
		StepSpec{
			AnswerKey: models.KeyHasInsurance,
			Prompt: Branch{
				On: models.KeyHasInsurance,
				Cases: []Case{
					{Label: "Yes", Prompt: Ask("Many homeowners don't realize they qualify for discounts on their existing policy. Common discounts include:\n\n"+
						"• Multi-policy (bundling with auto insurance): 5-25% savings\n"+
						"• Home security systems: 5-20% savings\n"+
						"• Impact-resistant roofing: 5-10% savings\n"+
						"• New home/renovation discounts: 10-15% savings\n"+
						"• Claims-free discount: 5-20% for no claims history\n\n"+
						"Would you like us to connect you with an insurance advisor who can review your current policy for potential savings?", opts...)},
					{Label: "No", Prompt: Ask("When shopping for home insurance, it's important to compare offers from multiple providers. Some top-rated insurers for cost-effective coverage include:\n\n"+
						"• HomeGuard Insurance: Known for competitive rates and good customer service\n"+
						"• ValueSafe: Offers specialized packages for new homeowners\n"+
						"• SecureHome: Provides substantial discounts for home security features\n\n"+
						"Would you like us to connect you with an insurance advisor who can help you find the best rates?", opts...)},
				},
				Default: Ask("Smart move! Shopping around regularly can save you hundreds on home insurance. When comparing policies, consider these factors:\n\n"+
					"• Coverage limits: Make sure they match your home's actual replacement value\n"+
					"• Deductibles: Higher deductibles mean lower premiums\n"+
					"• Discount opportunities: Security systems, bundling, etc.\n"+
					"• Customer service ratings: Check independent reviews\n\n"+
					"Would you like us to connect you with an insurance advisor who can help you compare options?", opts...),
			},
		},
		StepSpec{
			AnswerKey: models.KeyWantsInsuranceAdvisor,
			Terminal:  Always,
			Prompt: connectFinal(models.KeyWantsInsuranceAdvisor,
				"Great! One of our insurance partners will reach out to you soon to help you explore the best options for your situation. They can provide a free review of your current policy or help you find new coverage with maximum discounts. Is there anything specific about your home or insurance needs they should know?",
				"No problem! If you'd like help with home insurance in the future, just let us know. We also have a helpful guide on our website that outlines the most overlooked insurance discounts. Is there anything else I can help you with today?"),
		},
	)
}

func newTaxFlow() *TableFlow {
	return MustTableFlow(models.FlowSavingsTax, models.EventKindMoneyRequest, moneyColumns,
		StepSpec{
			Prompt: Ask("Homeownership comes with several valuable tax benefits. The most common include:\n\n"+
				"• Mortgage interest deduction: Interest paid on up to $750,000 of mortgage debt\n"+
				"• Property tax deduction: Up to $10,000 in state and local taxes\n"+
				"• Home office deduction: If you work from home\n"+
				"• Energy efficiency credits: For qualifying improvements\n"+
				"• Capital gains exclusion: When selling your primary residence\n\n"+
				"Tax laws change frequently and benefits vary based on your situation. Would you like to connect with a tax consultant who specializes in real estate?",
				labelConnect, labelNoThanks),
		},
		StepSpec{
			AnswerKey: models.KeyWantsTaxConsultant,
			Terminal:  Always,
			Prompt: connectFinal(models.KeyWantsTaxConsultant,
				"Great! One of our tax consultant partners will reach out to you soon. They can provide personalized advice on maximizing your homeowner tax benefits. Is there anything specific about your tax situation they should know?",
				"No problem! If you'd like more information about homeowner tax benefits in the future, just let us know. Our blog also has seasonal tax tips that you might find helpful. Is there anything else I can help you with today?"),
		},
	)
}
