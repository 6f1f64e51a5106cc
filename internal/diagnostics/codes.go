package diagnostics

// Error codes for the Jet compiler
const (
	// Declaration errors (D prefix)
	ErrRedeclaration        = "D0001"
	ErrConflictingOverloads = "D0002"
	ErrCyclicSupertypes     = "D0003"
	ErrUnresolvedType       = "D0004"
	ErrFinalSupertype       = "D0005"
	ErrWrongTypeArity       = "D0006"
	ErrManyClassSupertypes  = "D0007"
	ErrSupertypeNotClass    = "D0008"
	ErrMissingOverride      = "D0009"
	ErrAbstractNotImpl      = "D0010"
	ErrOverridesNothing     = "D0011"
	ErrFinalOverride        = "D0012"

	// Type checker errors (T prefix)
	ErrTypeMismatch          = "T0001"
	ErrUnresolvedReference   = "T0002"
	ErrUnsafeCall            = "T0003"
	ErrConditionNotBoolean   = "T0004"
	ErrThisOutsideClass      = "T0005"
	ErrIncompatibleIsCheck   = "T0006"
	ErrAbstractInstantiation = "T0007"
	ErrAssignToNonVariable   = "T0008"
	ErrNotCallable           = "T0009"
	ErrInvalidOperator       = "T0010"
	ErrReturnNotAllowed      = "T0011"
	ErrInvisibleMember       = "T0012"
	ErrNoElseInWhen          = "T0013"

	// Call resolution errors (C prefix)
	ErrNoApplicableCandidate    = "C0001"
	ErrConflictingSubstitutions = "C0002"
	ErrTypeConstructorMismatch  = "C0003"
	ErrNoInformationForParam    = "C0004"
	ErrUpperBoundViolated       = "C0005"
	ErrWrongArgumentCount       = "C0006"
	ErrArgumentTypeMismatch     = "C0007"
	ErrWrongTypeArgumentCount   = "C0008"
	ErrAmbiguousCall            = "C0009"
	ErrNamedArgumentNotFound    = "C0010"
	ErrArgumentPassedTwice      = "C0011"
	ErrNoValueForParameter      = "C0012"

	// Control-flow errors (F prefix)
	ErrBreakOutsideLoop      = "F0001"
	ErrContinueOutsideLoop   = "F0002"
	ErrUnresolvedLabel       = "F0003"
	ErrMissingReturn         = "F0004"
	ErrReturnWithoutValue    = "F0005"
	ErrUninitializedVariable = "F0006"
	ErrValReassignment       = "F0007"

	// Code generation (G prefix)
	ErrUnsupported = "G0001"

	ErrInternal = "E9999"

	// Warnings (W prefix)
	WarnUnreachableCode     = "W0001"
	WarnUnusedVariable      = "W0002"
	WarnAssignedNeverRead   = "W0003"
	WarnUnusedExpression    = "W0004"
	WarnUnnecessaryNotNull  = "W0005"
	WarnUselessCast         = "W0006"
	WarnUnnecessarySafeCall = "W0007"
	WarnUnusedParameter     = "W0008"

	WarnConstantConditionTrue  = "W0009"
	WarnConstantConditionFalse = "W0010"
	WarnClasspath              = "W0011"
)
