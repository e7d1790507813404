package appointment_package

// AttachPackageRequest HTTP request model
type AttachPackageRequest struct {
	PackageID int64 `json:"packageId" validate:"required,gt=0"`
}
