// Package repository define las entidades del flujo de invitaciones y los
// contratos de repositorio, independientes del almacenamiento.
//
// Las implementaciones viven en internal/store/adapters (pg, memory).
//
// Convenciones:
//   - Context siempre es el primer parámetro.
//   - Los IDs nullable se representan con string vacío.
//   - Los errores de dominio están en errors.go.
package repository
