package constants

const (
	AppMain         = "shopcart"
	AppCartService  = "cart-service"
	AudienceShopper = "audience-shopper"
	IssuerAuth      = "auth-service"
)
