// Package models defines flow type definitions to avoid circular imports.
package models

import "strings"

// FlowID identifies an entry in the flow catalog.
type FlowID string

// DataKey is the key an answer is stored under in a session.
type DataKey string

// Payload is a quick reply or postback payload sent by the chat platform.
type Payload string

// Router flows.
const (
	FlowFindHome  FlowID = "find_home"
	FlowGetHelp   FlowID = "get_help"
	FlowSaveMoney FlowID = "save_money"
)

// Interview flows.
const (
	FlowFindHomeBuy      FlowID = "find_home_buy"
	FlowFindHomeRent     FlowID = "find_home_rent"
	FlowHelpRealEstate   FlowID = "help_real_estate"
	FlowHelpMaintenance  FlowID = "help_maintenance"
	FlowHelpLegal        FlowID = "help_legal"
	FlowHelpOther        FlowID = "help_other"
	FlowSavingsMortgage  FlowID = "savings_mortgage"
	FlowSavingsUtility   FlowID = "savings_utility"
	FlowSavingsInsurance FlowID = "savings_insurance"
	FlowSavingsTax       FlowID = "savings_tax"
)

// Answer keys, unique per flow.
const (
	KeyHomeType        DataKey = "home_type"
	KeyPropertyType    DataKey = "property_type"
	KeyBudget          DataKey = "budget"
	KeyLocation        DataKey = "location"
	KeyFinancing       DataKey = "financing"
	KeyRoommateService DataKey = "roommate_service"

	KeyHelpCategory          DataKey = "help_category"
	KeyRealEstateTopic       DataKey = "real_estate_topic"
	KeyWantsConnection       DataKey = "wants_connection"
	KeyMaintenancePreference DataKey = "maintenance_preference"
	KeyMaintenanceIssue      DataKey = "maintenance_issue"
	KeyWantsResources        DataKey = "wants_resources"
	KeyLegalTopic            DataKey = "legal_topic"
	KeySpecificLegalConcern  DataKey = "specific_legal_concern"
	KeyWantsLegalReferral    DataKey = "wants_legal_referral"
	KeyOtherQuestion         DataKey = "other_question"

	KeySavingsCategory       DataKey = "savings_category"
	KeyMortgageType          DataKey = "mortgage_type"
	KeyWantsMortgageExpert   DataKey = "wants_mortgage_expert"
	KeyUtilityPreference     DataKey = "utility_preference"
	KeyWantsUtilityGuide     DataKey = "wants_utility_guide"
	KeyHasInsurance          DataKey = "has_insurance"
	KeyWantsInsuranceAdvisor DataKey = "wants_insurance_advisor"
	KeyWantsTaxConsultant    DataKey = "wants_tax_consultant"
)

// Menu payloads understood by the response handler.
const (
	PayloadGetStarted Payload = "GET_STARTED"
	PayloadFindHome   Payload = "FIND_HOME"
	PayloadGetHelp    Payload = "GET_HELP"
	PayloadSaveMoney  Payload = "SAVE_MONEY"
	PayloadLearnMore  Payload = "LEARN_MORE"
	PayloadBuy        Payload = "BUY"
	PayloadRent       Payload = "RENT"
)

// PayloadFor derives the quick reply payload for an option label.
func PayloadFor(label string) Payload {
	return Payload(strings.ToUpper(strings.ReplaceAll(label, " ", "_")))
}
