package hooks

// Hook names as they appear in logs and metrics.
const (
	HookAssignSlug                 = "assignSlug"
	HookAttachOwner                = "attachOwner"
	HookDefaultStatus              = "defaultStatus"
	HookSanitizeDescription        = "sanitizeDescription"
	HookNotifyModerationTransition = "notifyModerationTransition"
	HookNotifyAdminsPending        = "notifyAdminsPending"
	HookInviteClaim                = "inviteClaim"
	HookRetainMedia                = "retainMedia"
	HookRevalidateSitemap          = "revalidateSitemap"
	HookDeletionGuard              = "deletionGuard"
)

// NewListingPipeline returns the hook pipeline of the listing collections.
func NewListingPipeline(s Settings) *Pipeline {
	return &Pipeline{
		BeforeValidate: []BeforeValidateStep{
			{Name: HookAssignSlug, Fn: AssignSlug},
			{Name: HookAttachOwner, Fn: AttachOwner},
			{Name: HookDefaultStatus, Fn: DefaultStatus},
			{Name: HookSanitizeDescription, Fn: SanitizeDescription},
		},
		AfterChange: []AfterChangeStep{
			{Name: HookNotifyModerationTransition, Fn: NotifyModerationTransition(s)},
			{Name: HookNotifyAdminsPending, Fn: NotifyAdminsPending(s)},
			{Name: HookInviteClaim, Fn: InviteClaim(s)},
			{Name: HookRetainMedia, Fn: RetainMedia(s)},
			{Name: HookRevalidateSitemap, Fn: RevalidateSitemap()},
		},
		BeforeDelete: []BeforeDeleteStep{
			{Name: HookDeletionGuard, Fn: DeletionGuard(s)},
		},
	}
}
