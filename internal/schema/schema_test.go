package schema

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

// greenAcres is the canonical valid farm.
func greenAcres() FarmProfile {
	return FarmProfile{
		FarmName:             "Green Acres",
		FarmLocation:         "12 Rural Rd, County",
		FarmSize:             ptr(10.0),
		ProductionScale:      ScaleSmall,
		OwnershipStatus:      OwnershipOwned,
		FullName:             "Jane Doe",
		ContactPhone:         "1234567890",
		Gender:               GenderFemale,
		FarmType:             FarmMixed,
		BelongsToCooperative: false,
	}
}

func validPost() Post {
	return Post{
		Product: Product{Item: "Maize", Quantity: ptr(50.0), Price: ptr(120.0), Unit: "bag"},
		Pricing: Pricing{Currency: "ghs", Discount: 10},
	}
}

func validProfile() UserProfile {
	return UserProfile{
		Email:    "  Jane@Example.COM ",
		Username: "jane.doe",
		FullName: "Jane Doe",
		Role:     RoleFarmer,
	}
}

func paths(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	out := make([]string, 0, len(verr.Issues))
	for _, is := range verr.Issues {
		out = append(out, is.Path)
	}
	return out
}

func TestParseGreenAcres(t *testing.T) {
	f := greenAcres()
	if err := Parse(&f); err != nil {
		t.Fatalf("expected valid farm, got %v", err)
	}
}

func TestParseMissingFarmName(t *testing.T) {
	f := greenAcres()
	f.FarmName = "   "
	err := Parse(&f)
	if diff := cmp.Diff([]string{"farmName"}, paths(t, err)); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	var verr *ValidationError
	errors.As(err, &verr)
	if verr.Issues[0].Message != "is required" {
		t.Fatalf("unexpected message %q", verr.Issues[0].Message)
	}
}

func TestParseCooperativeRefinement(t *testing.T) {
	f := greenAcres()
	f.BelongsToCooperative = true
	err := Parse(&f)
	if diff := cmp.Diff([]string{"cooperativeName", "cooperativeExecutive"}, paths(t, err)); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(err.Error(), "belongsToCooperative") {
		t.Fatalf("expected refinement message, got %v", err)
	}

	f.CooperativeName = "Ashanti Growers"
	f.CooperativeExecutive = "K. Mensah"
	if err := Parse(&f); err != nil {
		t.Fatalf("expected valid cooperative farm, got %v", err)
	}
}

func TestNormalizeClearsCooperativeFieldsWhenNotMember(t *testing.T) {
	f := greenAcres()
	f.CooperativeName = "Leftover"
	if err := Parse(&f); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if f.CooperativeName != "" {
		t.Fatalf("expected cooperative name to be cleared, got %q", f.CooperativeName)
	}
}

func TestNormalizeLeavesCallerListsIntact(t *testing.T) {
	crops := []string{" maize ", "", "beans"}
	f := greenAcres()
	f.CropsGrown = crops
	f.Normalize()
	if diff := cmp.Diff([]string{"maize", "beans"}, f.CropsGrown); diff != "" {
		t.Errorf("normalized crops mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{" maize ", "", "beans"}, crops); diff != "" {
		t.Errorf("caller slice was modified (-want +got):\n%s", diff)
	}
}

func TestParseFarmNumericAndEnumRules(t *testing.T) {
	f := greenAcres()
	f.FarmSize = ptr(-1.0)
	f.ProductionScale = "Huge"
	f.ContactPhone = "12345"
	f.Email = "not-an-email"
	f.FarmImages = []string{"https://cdn.example.com/a.jpg", "ftp://example.com/b.jpg"}

	got := paths(t, Parse(&f))
	want := []string{"farmSize", "productionScale", "contactPhone", "email", "farmImages[1]"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFarmSizeRequired(t *testing.T) {
	f := greenAcres()
	f.FarmSize = nil
	if diff := cmp.Diff([]string{"farmSize"}, paths(t, Parse(&f))); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	f.FarmSize = ptr(0.0)
	if err := Parse(&f); err != nil {
		t.Fatalf("zero farm size is valid, got %v", err)
	}
}

func TestParsePost(t *testing.T) {
	p := validPost()
	if err := Parse(&p); err != nil {
		t.Fatalf("expected valid post, got %v", err)
	}
	if p.Pricing.Currency != "GHS" {
		t.Fatalf("expected currency to be uppercased, got %q", p.Pricing.Currency)
	}
	if p.Product.Status != StatusAvailable {
		t.Fatalf("expected default status, got %q", p.Product.Status)
	}
}

func TestParsePostRejectsNegativesAndBadValues(t *testing.T) {
	p := validPost()
	p.Product.Quantity = ptr(-3.0)
	p.Product.Price = ptr(-0.01)
	p.Product.Status = "gone"
	p.Pricing.Discount = 150
	p.Pricing.Currency = "XX"
	p.Logistics.DeliveryFee = -5
	p.HarvestDetails.HarvestDate = "12/01/2025"
	p.Description = strings.Repeat("a", 2001)

	got := paths(t, Parse(&p))
	want := []string{
		"product.quantity",
		"product.price",
		"product.status",
		"harvest_details.harvest_date",
		"pricing.discount",
		"pricing.currency",
		"logistics.delivery_fee",
		"description",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestParsePostMissingProduct(t *testing.T) {
	p := Post{}
	got := paths(t, Parse(&p))
	want := []string{"product.item", "product.quantity", "product.price", "product.unit"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProfile(t *testing.T) {
	p := validProfile()
	if err := Parse(&p); err != nil {
		t.Fatalf("expected valid profile, got %v", err)
	}
	if p.Email != "jane@example.com" {
		t.Fatalf("expected normalized email, got %q", p.Email)
	}
}

func TestParseProfileRules(t *testing.T) {
	p := validProfile()
	p.Username = "ja ne"
	p.Role = "Admin"
	p.PhoneNumber = "call-me-maybe"
	p.Bio = strings.Repeat("b", 501)
	p.SocialMediaLinks.Website = "not a url"

	got := paths(t, Parse(&p))
	want := []string{"username", "bio", "role", "phoneNumber", "socialMediaLinks.website"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		name  string
		in    Rating
		valid bool
	}{
		{"zero", Rating{FarmerRating: ptr(0.0)}, true},
		{"five with review", Rating{FarmerRating: ptr(5.0), Review: "Great maize"}, true},
		{"missing", Rating{}, false},
		{"too high", Rating{FarmerRating: ptr(5.5)}, false},
		{"negative", Rating{FarmerRating: ptr(-1.0)}, false},
		{"long review", Rating{FarmerRating: ptr(3.0), Review: strings.Repeat("r", 1001)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.in
			if got := SafeParse(&r).Success; got != tt.valid {
				t.Fatalf("Success = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestFlagToggle(t *testing.T) {
	for _, f := range Flags() {
		ft := FlagToggle{Flag: f}
		if err := Parse(&ft); err != nil {
			t.Fatalf("flag %s rejected: %v", f, err)
		}
		if !f.Valid() {
			t.Fatalf("flag %s not valid", f)
		}
	}
	bad := FlagToggle{Flag: "starred"}
	if diff := cmp.Diff([]string{"flag"}, paths(t, Parse(&bad))); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	if Flag("starred").Valid() {
		t.Fatal("unknown flag reported valid")
	}
}

func TestPictureUpload(t *testing.T) {
	ok := PictureUpload{ProfilePicture: "data:image/png;base64,iVBORw0KGgo="}
	if err := Parse(&ok); err != nil {
		t.Fatalf("data uri rejected: %v", err)
	}
	bad := PictureUpload{ProfilePicture: "data:text/plain;base64,aGk="}
	if err := Parse(&bad); err == nil {
		t.Fatal("expected non-image data uri to be rejected")
	}
}

func TestSafeParse(t *testing.T) {
	f := greenAcres()
	if res := SafeParse(&f); !res.Success || len(res.Errors) != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	f.FarmName = ""
	res := SafeParse(&f)
	if res.Success {
		t.Fatal("expected failure")
	}
	if diff := cmp.Diff([]Issue{{Path: "farmName", Message: "is required"}}, res.Errors); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNonStruct(t *testing.T) {
	var f *FarmProfile
	if err := Parse(f); err == nil {
		t.Fatal("expected error for nil payload")
	}
}

func TestIsImageRef(t *testing.T) {
	tests := map[string]bool{
		"https://res.cloudinary.com/x/image/upload/a.jpg": true,
		"http://localhost:8080/media/a.png":               true,
		"data:image/jpeg;base64,/9j/4AAQ":                 true,
		"data:image/png,rawbytes":                         false,
		"data:application/pdf;base64,JVBERi0=":            false,
		"/relative/path.png":                              false,
		"javascript:alert(1)":                             false,
	}
	for in, want := range tests {
		if got := IsImageRef(in); got != want {
			t.Errorf("IsImageRef(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Issues: []Issue{{Path: "farmName", Message: "is required"}, {Message: "bad"}}}
	if got := err.Error(); got != "validation failed: farmName: is required; bad" {
		t.Fatalf("unexpected message %q", got)
	}
}
