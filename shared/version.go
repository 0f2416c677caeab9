package shared

// Version of the gemini-live module.
const Version = "0.2.0"
