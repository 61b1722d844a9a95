package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akinalp/ajans/models"
)

var allCategories = []models.NotificationCategory{
	models.CategoryTaskAssigned, models.CategoryTaskUpdated, models.CategoryTaskCompleted,
	models.CategoryTaskComment, models.CategoryTaskDueSoon,
	models.CategoryProjectCreated, models.CategoryProjectUpdated, models.CategoryProjectMemberAdded,
	models.CategoryInvoiceCreated, models.CategoryInvoiceSent, models.CategoryInvoicePaid, models.CategoryInvoiceOverdue,
	models.CategoryFileUploaded, models.CategoryFileShared,
	models.CategoryApprovalRequested, models.CategoryApprovalApproved, models.CategoryApprovalRejected,
	models.CategoryMention, models.CategoryChannelMessage, models.CategorySystem,
	"CONTRACT_SIGNED",
}

func TestShouldEmail_MasterSwitchOff(t *testing.T) {
	prefs := models.DefaultPreference("u1")
	prefs.EmailEnabled = false

	for _, c := range allCategories {
		assert.False(t, ShouldEmail(c, prefs), c)
	}
}

func TestShouldEmail_CategoryFlags(t *testing.T) {
	tests := []struct {
		category models.NotificationCategory
		disable  func(p *models.NotificationPreference)
	}{
		{models.CategoryTaskAssigned, func(p *models.NotificationPreference) { p.EmailTaskAssigned = false }},
		{models.CategoryTaskDueSoon, func(p *models.NotificationPreference) { p.EmailTaskAssigned = false }},
		{models.CategoryProjectMemberAdded, func(p *models.NotificationPreference) { p.EmailProjectUpdates = false }},
		{models.CategoryInvoiceOverdue, func(p *models.NotificationPreference) { p.EmailInvoiceUpdates = false }},
		{models.CategoryFileUploaded, func(p *models.NotificationPreference) { p.EmailFileShared = false }},
		{models.CategoryApprovalRejected, func(p *models.NotificationPreference) { p.EmailApprovalRequests = false }},
		{models.CategoryMention, func(p *models.NotificationPreference) { p.EmailMentions = false }},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			prefs := models.DefaultPreference("u1")
			assert.True(t, ShouldEmail(tt.category, prefs))

			tt.disable(&prefs)
			assert.False(t, ShouldEmail(tt.category, prefs))
		})
	}
}

func TestShouldEmail_UnmappedCategoriesFollowMasterSwitch(t *testing.T) {
	// Tüm aile bayrakları kapalı; eşleşmeyen kategoriler yine gider.
	prefs := models.NotificationPreference{UserID: "u1", EmailEnabled: true}

	for _, c := range []models.NotificationCategory{models.CategoryChannelMessage, models.CategorySystem, "CONTRACT_SIGNED"} {
		assert.True(t, ShouldEmail(c, prefs), c)
	}
	assert.False(t, ShouldEmail(models.CategoryTaskAssigned, prefs))
}

func TestShouldShowInApp(t *testing.T) {
	prefs := models.DefaultPreference("u1")
	assert.True(t, ShouldShowInApp(models.CategorySystem, prefs))

	prefs.InAppEnabled = false
	assert.False(t, ShouldShowInApp(models.CategorySystem, prefs))
}
