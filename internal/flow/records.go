package flow

import (
	"fmt"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

// Record column constants
const (
	missingValue    = "N/A"
	unknownCategory = "Unknown"
	noDetails       = "No specific details provided"
	pendingStatus   = "Pending"

	helpRequestType  = "Help Request"
	moneyRequestType = "Save Money Request"
)

// Help and savings category labels offered by the routers.
const (
	CategoryRealEstate  = "Real Estate Questions"
	CategoryMaintenance = "Maintenance & Repairs"
	CategoryLegal       = "Legal Help"
	CategoryOther       = "Other"

	CategoryMortgage  = "Lower Mortgage Payments"
	CategoryUtility   = "Reduce Utility Bills"
	CategoryInsurance = "Home Insurance Discounts"
	CategoryTax       = "Tax Benefits"
)

// BuildFields prepends the timestamp, user id and user name to a completion's
// columns, producing the row handed to the Persister.
func BuildFields(c Completion, userID, userName string, now time.Time) []string {
	fields := make([]string, 0, len(c.Columns)+3)
	fields = append(fields, now.Format(models.RecordTimeLayout), userID, userName)
	return append(fields, c.Columns...)
}

func homeColumns(label string, typeKey, lastKey models.DataKey) RecordFunc {
	return func(s *session.Session) []string {
		return []string{
			label,
			s.AnswerOr(typeKey, ""),
			s.AnswerOr(models.KeyBudget, ""),
			s.AnswerOr(models.KeyLocation, ""),
			s.AnswerOr(lastKey, ""),
			"",
		}
	}
}

// helpColumns describes a help request by the category chosen at the router,
// not by the sub-flow that collected the answers.
func helpColumns(s *session.Session) []string {
	category := s.AnswerOr(models.KeyHelpCategory, unknownCategory)
	na := func(k models.DataKey) string { return s.AnswerOr(k, missingValue) }

	var details string
	switch category {
	case CategoryRealEstate:
		details = fmt.Sprintf("Topic: %s, Connect: %s", na(models.KeyRealEstateTopic), na(models.KeyWantsConnection))
	case CategoryMaintenance:
		details = fmt.Sprintf("Preference: %s, Issue: %s, Resources: %s",
			na(models.KeyMaintenancePreference), na(models.KeyMaintenanceIssue), na(models.KeyWantsResources))
	case CategoryLegal:
		topic := na(models.KeyLegalTopic)
		if topic == legalOther {
			details = fmt.Sprintf("Topic: Other - %s, Referral: %s", na(models.KeySpecificLegalConcern), na(models.KeyWantsLegalReferral))
		} else {
			details = fmt.Sprintf("Topic: %s, Referral: %s", topic, na(models.KeyWantsLegalReferral))
		}
	case CategoryOther:
		details = fmt.Sprintf("Question: %s", na(models.KeyOtherQuestion))
	default:
		details = noDetails
	}
	return []string{helpRequestType, category, details, pendingStatus, "", ""}
}

func moneyColumns(s *session.Session) []string {
	category := s.AnswerOr(models.KeySavingsCategory, unknownCategory)
	na := func(k models.DataKey) string { return s.AnswerOr(k, missingValue) }

	var details string
	switch category {
	case CategoryMortgage:
		details = fmt.Sprintf("Type: %s, Connect: %s", na(models.KeyMortgageType), na(models.KeyWantsMortgageExpert))
	case CategoryUtility:
		details = fmt.Sprintf("Preference: %s, Guide: %s", na(models.KeyUtilityPreference), na(models.KeyWantsUtilityGuide))
	case CategoryInsurance:
		details = fmt.Sprintf("Has Insurance: %s, Connect: %s", na(models.KeyHasInsurance), na(models.KeyWantsInsuranceAdvisor))
	case CategoryTax:
		details = fmt.Sprintf("Connect: %s", na(models.KeyWantsTaxConsultant))
	default:
		details = noDetails
	}
	return []string{moneyRequestType, category, details, pendingStatus, "", ""}
}
