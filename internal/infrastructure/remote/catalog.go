package remote

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
)

// IndustryCatalog 单个行业的管道阶段与任务类型词表
type IndustryCatalog struct {
	PipelineStages []entity.PipelineStageConfig `yaml:"pipeline_stages"`
	TaskTypes      []string                     `yaml:"task_types"`
}

// Catalog 行业 → 配置映射
type Catalog map[entity.Industry]IndustryCatalog

// DefaultCatalog 内置行业配置
func DefaultCatalog() Catalog {
	return Catalog{
		entity.IndustryServices: {
			PipelineStages: []entity.PipelineStageConfig{
				{ID: "stage_prospecto", Name: "Prospecto", Probability: 10, Order: 1},
				{ID: "stage_lead", Name: "Lead Calificado", Probability: 25, Order: 2},
				{ID: "stage_propuesta", Name: "Propuesta Enviada", Probability: 60, Order: 3},
				{ID: "stage_negociacion", Name: "Negociación", Probability: 80, Order: 4},
				{ID: "stage_ganado", Name: "Ganado", Probability: 100, Order: 5},
			},
			TaskTypes: []string{"Tarea", "Llamada", "Reunión", "Email"},
		},
		entity.IndustryRealEstate: {
			PipelineStages: []entity.PipelineStageConfig{
				{ID: "re_prospecto", Name: "Prospecto Interesado", Probability: 5, Order: 1},
				{ID: "re_visita", Name: "Visita Agendada", Probability: 20, Order: 2},
				{ID: "re_oferta", Name: "Oferta Recibida", Probability: 50, Order: 3},
				{ID: "re_contrato", Name: "Contrato/Reserva", Probability: 85, Order: 4},
				{ID: "re_vendido", Name: "Vendido", Probability: 100, Order: 5},
			},
			TaskTypes: []string{"Visita a Propiedad", "Llamada de Seguimiento", "Preparar Contrato", "Tasación"},
		},
		entity.IndustryHealth: {
			PipelineStages: []entity.PipelineStageConfig{
				{ID: "h_solicitud", Name: "Solicitud de Cita", Probability: 25, Order: 1},
				{ID: "h_confirmada", Name: "Cita Confirmada", Probability: 70, Order: 2},
				{ID: "h_atendido", Name: "Paciente Atendido", Probability: 90, Order: 3},
				{ID: "h_seguimiento", Name: "En Seguimiento", Probability: 95, Order: 4},
				{ID: "h_finalizado", Name: "Proceso Finalizado", Probability: 100, Order: 5},
			},
			TaskTypes: []string{"Confirmar Cita", "Enviar Resultados", "Recordatorio de Preparación", "Consulta de Seguimiento"},
		},
		entity.IndustryMunicipality: {
			PipelineStages: []entity.PipelineStageConfig{
				{ID: "m_ingresado", Name: "Caso Ingresado", Probability: 10, Order: 1},
				{ID: "m_asignado", Name: "Asignado a Depto.", Probability: 30, Order: 2},
				{ID: "m_en_revision", Name: "En Revisión", Probability: 60, Order: 3},
				{ID: "m_resuelto", Name: "Resuelto", Probability: 95, Order: 4},
				{ID: "m_cerrado", Name: "Cerrado", Probability: 100, Order: 5},
			},
			TaskTypes: []string{"Inspección en Terreno", "Revisión de Documentos", "Contacto Ciudadano", "Generar Reporte"},
		},
	}
}

// LoadCatalog 从 YAML 文件加载行业配置，文件中出现的行业覆盖内置配置
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline catalog: %w", err)
	}

	var override map[entity.Industry]IndustryCatalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse pipeline catalog: %w", err)
	}

	for industry, cfg := range override {
		if !entity.ValidIndustry(industry) {
			return nil, fmt.Errorf("pipeline catalog: unknown industry %q", industry)
		}
		base := catalog[industry]
		if len(cfg.PipelineStages) > 0 {
			base.PipelineStages = cfg.PipelineStages
		}
		if len(cfg.TaskTypes) > 0 {
			base.TaskTypes = cfg.TaskTypes
		}
		catalog[industry] = base
	}

	return catalog, nil
}
