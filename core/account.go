package core

import "time"

// DocumentNationalID is the only document type the client submits today
const DocumentNationalID = "national_id"

// KYCSubmission is the body of POST /kyc/submit. Images are base64 encoded.
type KYCSubmission struct {
	FullName         string `json:"fullName" validate:"required"`
	DateOfBirth      string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Address          string `json:"address" validate:"required"`
	IdentityNumber   string `json:"identityNumber" validate:"required,alphanum"`
	DocumentType     string `json:"documentType" validate:"required"`
	DocumentFront    string `json:"documentFront" validate:"required,base64"`
	DocumentBack     string `json:"documentBack" validate:"required,base64"`
	SelfieWithIDCard string `json:"selfieWithIdCard" validate:"required,base64"`
	Country          string `json:"country" validate:"required,iso3166_1_alpha2"`

	// Older backend builds read the document images from these keys.
	IDCardFrontImage string `json:"idCardFrontImage,omitempty" validate:"-"`
	IDCardBackImage  string `json:"idCardBackImage,omitempty" validate:"-"`
}

// ProfileUpdate is the body of PATCH /user/profile; nil fields are left alone
type ProfileUpdate struct {
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	FullName    *string `json:"fullName,omitempty"`
	DateOfBirth *string `json:"dateOfBirth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Country     *string `json:"country,omitempty" validate:"omitempty,iso3166_1_alpha2"`
	Address     *string `json:"address,omitempty"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	PhoneNumber *string `json:"phoneNumber,omitempty" validate:"omitempty,e164"`
}

// ReferredUser is someone who joined with the current user's code
type ReferredUser struct {
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Referrer is the account whose code the current user redeemed
type Referrer struct {
	Username     string `json:"username"`
	ReferralCode string `json:"referralCode"`
}

// ReferralStats is the response of GET /user/referral-stats
type ReferralStats struct {
	CurrentReferrals   int            `json:"currentReferrals"`
	MaxReferrals       int            `json:"maxReferrals"`
	RemainingReferrals int            `json:"remainingReferrals"`
	ReferredByMe       []ReferredUser `json:"referredByMe"`
	WhoReferredMe      []Referrer     `json:"whoReferredMe"`
}

// MessageResponse is the generic {"message": "..."} acknowledgement
type MessageResponse struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message"`
}
