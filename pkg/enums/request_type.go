package enums

// RequestType is the kind of visit the client asked for.
type RequestType string

const (
	RequestTypeDiagnosis    RequestType = "Diagnóstico"
	RequestTypeRepair       RequestType = "Reparación"
	RequestTypeMaintenance  RequestType = "Mantenimiento"
	RequestTypeInstallation RequestType = "Instalación"
)

func (r RequestType) String() string {
	return string(r)
}
