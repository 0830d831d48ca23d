package flow

// NewCatalog builds a Registry holding every flow the bot offers: the three
// category routers and their interview sub-flows.
func NewCatalog() *Registry {
	reg := NewRegistry()

	reg.Register(newFindHomeRouter(reg))
	reg.Register(newBuyFlow())
	reg.Register(newRentFlow())

	reg.Register(newGetHelpRouter(reg))
	reg.Register(newRealEstateFlow())
	reg.Register(newMaintenanceFlow())
	reg.Register(newLegalFlow())
	reg.Register(newOtherHelpFlow())

	reg.Register(newSaveMoneyRouter(reg))
	reg.Register(newMortgageFlow())
	reg.Register(newUtilityFlow())
	reg.Register(newInsuranceFlow())
	reg.Register(newTaxFlow())

	return reg
}
