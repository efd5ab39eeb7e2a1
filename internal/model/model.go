package model

// Employee is a directory record. Only ID and FullName are guaranteed; the
// rest is present when the record came straight from the directory service.
type Employee struct {
	ID       int    `json:"id_empleado"`
	FullName string `json:"nombre_completo"`

	AreaID        *int     `json:"id_area,omitempty"`
	DepartmentID  *int     `json:"id_departamento,omitempty"`
	SubareaID     *int     `json:"id_subarea,omitempty"`
	PositionID    *int     `json:"id_puesto,omitempty"`
	LocationID    *int     `json:"id_cedis,omitempty"`
	AccountingKey *string  `json:"clave_contable,omitempty"`
	FirstName     *string  `json:"nombre,omitempty"`
	PaternalName  *string  `json:"apellido_paterno,omitempty"`
	MaternalName  *string  `json:"apellido_materno,omitempty"`
	Street        *string  `json:"calle,omitempty"`
	StreetNumber  *string  `json:"numero,omitempty"`
	Neighborhood  *string  `json:"colonia,omitempty"`
	City          *string  `json:"ciudad,omitempty"`
	State         *string  `json:"estado,omitempty"`
	PostalCode    *string  `json:"codigo_postal,omitempty"`
	Email         *string  `json:"correo,omitempty"`
	Phone         *string  `json:"telefono,omitempty"`
	RFC           *string  `json:"rfc,omitempty"`
	CURP          *string  `json:"curp,omitempty"`
	IMSS          *string  `json:"imss,omitempty"`
	EmployeeType  *string  `json:"id_tipo_empleado,omitempty"`
	Username      *string  `json:"usuario,omitempty"`
	CreditLimit   *float64 `json:"limite_credito,omitempty"`
	RegisteredAt  *string  `json:"fecha_registro,omitempty"`
	RegisteredBy  *int     `json:"usuario_registro,omitempty"`
	ModifiedBy    *int     `json:"usuario_modifico,omitempty"`
	Active        bool     `json:"activo"`
	MorningEntry  *string  `json:"entrada_matutina,omitempty"`
	EveningEntry  *string  `json:"entrada_vespertina,omitempty"`
	CompanyID     *int     `json:"id_empresa,omitempty"`
	Position      *string  `json:"puesto,omitempty"`
	Location      *string  `json:"cedis,omitempty"`
	Area          *string  `json:"area,omitempty"`
	Department    *string  `json:"departamento,omitempty"`
}

// Identity returns the display-identity subset of e, which is all that
// survives a round trip through the preference store.
func (e Employee) Identity() Employee {
	return Employee{ID: e.ID, FullName: e.FullName}
}

// Page is one fetch unit of the paged listing. Keys are 1-based; a zero
// PrevKey means there is no previous page.
type Page struct {
	Items   []Employee `json:"items"`
	Key     int        `json:"key"`
	PrevKey int        `json:"prev_key,omitempty"`
	NextKey int        `json:"next_key"`
}

// LastCheckIn records the most recent attendance attempt.
type LastCheckIn struct {
	Employee  *Employee `json:"employee,omitempty"`
	Timestamp string    `json:"timestamp"`
}

// Outcome is the normalized result of an attendance submission.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
