package fee

import "github.com/agricoop/backend/internal/domain/shared"

var (
	ErrFeeRuleNotFound          = shared.NewDomainError("FEE_RULE_NOT_FOUND", "Fee rule not found")
	ErrFeeApplicationNotFound   = shared.NewDomainError("FEE_APPLICATION_NOT_FOUND", "Fee application not found")
	ErrRuleNotActive            = shared.NewDomainError("FEE_RULE_NOT_ACTIVE", "Fee rule is not active")
	ErrRuleNotEffective         = shared.NewDomainError("FEE_RULE_NOT_EFFECTIVE", "Fee rule effective date has not been reached")
	ErrRuleDeleted              = shared.NewDomainError("FEE_RULE_DELETED", "Fee rule has been deleted")
	ErrEffectiveDateNotFuture   = shared.NewDomainError("EFFECTIVE_DATE_NOT_FUTURE", "Effective date must be after today")
	ErrDuplicateOpenApplication = shared.NewDomainError("DUPLICATE_OPEN_APPLICATION", "An open fee application already exists for this rule and user")
)
