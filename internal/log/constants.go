package log

const (
	KeyAppName            = "app"
	KeyRequestID          = "requestId"
	KeyTraceID            = "traceId"
	KeySpanID             = "spanId"
	KeyProcess            = "process"
	KeyTag                = "tag"
	KeyToken              = "token"
	KeyUserID             = "userId"
	KeyRequest            = "request"
	KeyRequestBody        = "requestBody"
	KeyRequestHeader      = "requestHeader"
	KeyRequestHost        = "host"
	KeyRequestIp          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeyPathValues         = "pathValues"
	KeyConfig             = "config"
	KeyCacheKey           = "cacheKey"
	KeyStorageKey         = "storageKey"
	KeyStorageDriver      = "storageDriver"
	KeyCart               = "cart"
	KeyCartItemID         = "cartItemId"
	KeyCartItems          = "cartItems"
	KeyCartItemsCount     = "cartItemsCount"
	KeyCartItemQuantity   = "cartItemQuantity"
	KeyCartTotalPrice     = "cartTotalPrice"
	KeyProduct            = "product"
	KeyCheckoutSessionID  = "checkoutSessionId"
	KeyCheckoutStage      = "checkoutStage"
	KeyPaymentMethod      = "paymentMethod"
	KeyBreakerName        = "breakerName"
	KeyBreakerStateFrom   = "breakerStateFrom"
	KeyBreakerStateTo     = "breakerStateTo"
	KeyDbURL              = "dbUrl"
	KeyRequestProcessedAt = "requestProcessedAt"
)
