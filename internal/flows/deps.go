package flows

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Register             RegisterDeps
	Login                LoginDeps
	Logout               LogoutDeps
	Refresh              RefreshDeps
	Authenticate         AuthenticateDeps
	VerifyEmail          VerifyEmailDeps
	PasswordResetRequest PasswordResetRequestDeps
	PasswordResetConfirm PasswordResetConfirmDeps
	SessionAdmin         SessionAdminDeps
	TrackIP              TrackIPDeps
	IPCleanup            IPCleanupDeps
}
