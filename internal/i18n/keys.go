// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess          = "success"
	KeyError            = "error"
	KeyInternalError    = "error.internal"
	KeyRateLimitReached = "error.rate_limit"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthForbidden          = "auth.forbidden"

	// Users
	KeyUserNotFound       = "user.not_found"
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserDeleted        = "user.deleted"

	// Registration workflow
	KeyRegistrationNotFound       = "registration.not_found"
	KeyRegistrationCreated        = "registration.created"
	KeyRegistrationDetailsSaved   = "registration.details_saved"
	KeyRegistrationImageAttached  = "registration.image_attached"
	KeyRegistrationWrongStep      = "registration.wrong_step"
	KeyRegistrationBusy           = "registration.busy"
	KeyRegistrationCompleted      = "registration.completed"
	KeyRegistrationRejected       = "registration.rejected"
	KeyRegistrationAnalysisFailed = "registration.analysis_failed"
	KeyRegistrationWalletMissing  = "registration.wallet_missing"
	KeyRegistrationWalletRejected = "registration.wallet_rejected"
	KeyRegistrationMintFailed     = "registration.mint_failed"
	KeyRegistrationSaveFailed     = "registration.save_failed"
	KeyRegistrationDuplicate      = "registration.duplicate"
	KeyRegistrationDismissed      = "registration.dismissed"

	// Products
	KeyProductNotFound          = "product.not_found"
	KeyProductStatusUpdated     = "product.status_updated"
	KeyProductInvalidTransition = "product.invalid_transition"
	KeyProductTransferred       = "product.transferred"

	// Certificates
	KeyCertificateNotFound       = "certificate.not_found"
	KeyCertificateRecalled       = "certificate.recalled"
	KeyCertificateAlreadyRecall  = "certificate.already_recalled"
	KeyCertificateScoreAdjusted  = "certificate.score_adjusted"
	KeyCertificateNoToken        = "certificate.no_token"
	KeyCertificateNotOnChain     = "certificate.not_on_chain"
	KeyCertificateSupplyNotBound = "certificate.supply_unavailable"

	// Shipments
	KeyShipmentNotFound = "shipment.not_found"
	KeyShipmentCreated  = "shipment.created"
	KeyShipmentUpdated  = "shipment.updated"

	// Verification
	KeyVerificationAuthentic     = "verification.authentic"
	KeyVerificationNotAuthentic  = "verification.not_authentic"
	KeyVerificationNotFound      = "verification.not_found"
	KeyVerificationRecalled      = "verification.recalled"
	KeyVerificationNoCertificate = "verification.no_certificate"
	KeyVerificationSuccess       = "verification.success"
	KeyVerificationFailed        = "verification.failed"
	KeyVerificationInvalid       = "verification.invalid_code"

	// Wallet
	KeyWalletConnected       = "wallet.connected"
	KeyWalletDisconnected    = "wallet.disconnected"
	KeyWalletSwitched        = "wallet.switched"
	KeyWalletProviderMissing = "wallet.provider_missing"
	KeyWalletNoAccounts      = "wallet.no_accounts"
	KeyWalletUserRejected    = "wallet.user_rejected"
	KeyWalletNoContract      = "wallet.no_contract"
	KeyWalletSwitchFailed    = "wallet.switch_failed"

	// Analysis and QR codes
	KeyAnalysisFailed  = "analysis.failed"
	KeyImageInvalid    = "file.invalid_image"
	KeyImageRequired   = "file.image_required"
	KeyFileTooLarge    = "file.too_large"
	KeyQRInvalidInput  = "qr.invalid_input"
	KeyQRNotRecognized = "qr.not_recognized"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
