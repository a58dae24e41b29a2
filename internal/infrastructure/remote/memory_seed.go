package remote

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/soporteops/soporteops/console/internal/domain/entity"
)

// 内存远端的确定性数据生成。每类数据用 实例id×固定因子 做种子，
// 同一实例每次进程启动生成同样的数据，便于演示与测试复现。

// faker 基于 math/rand 的小型数据生成器
type faker struct {
	r *rand.Rand
}

func newFaker(seed int64) *faker {
	return &faker{r: rand.New(rand.NewSource(seed))}
}

func (f *faker) intn(min, max int) int {
	return min + f.r.Intn(max-min+1)
}

// float1 生成 0.1 精度的浮点数
func (f *faker) float1(min, max float64) float64 {
	v := min + f.r.Float64()*(max-min)
	return float64(int(v*10)) / 10
}

func (f *faker) boolean() bool {
	return f.r.Intn(2) == 1
}

func pick[T any](f *faker, opts []T) T {
	return opts[f.r.Intn(len(opts))]
}

var (
	firstNames = []string{
		"Lucía", "Mateo", "Sofía", "Santiago", "Valentina", "Sebastián",
		"Camila", "Diego", "Isabella", "Nicolás", "Martina", "Alejandro",
		"Emilia", "Daniel", "Victoria", "Gabriel", "Renata", "Tomás",
	}
	lastNames = []string{
		"García", "Rodríguez", "Martínez", "López", "González", "Pérez",
		"Sánchez", "Ramírez", "Torres", "Flores", "Rivera", "Gómez",
		"Díaz", "Castillo", "Vargas", "Romero",
	}
	streetNames = []string{
		"Av. Libertador", "Calle San Martín", "Av. Belgrano", "Calle Mitre",
		"Av. Rivadavia", "Calle Sarmiento", "Av. Corrientes", "Calle Moreno",
	}
	cityNames = []string{
		"Córdoba", "Rosario", "Mendoza", "Valparaíso", "Medellín",
		"Guadalajara", "Sevilla", "Montevideo",
	}
	loremWords = []string{
		"cliente", "servicio", "consulta", "respuesta", "pedido", "factura",
		"producto", "entrega", "reunión", "propuesta", "contrato", "pago",
		"soporte", "detalle", "información", "solicitud", "confirmación",
	}
	conversationTagPool = []string{"VIP", "Urgente", "Nuevo", "Seguimiento"}
)

func (f *faker) fullName() string {
	return pick(f, firstNames) + " " + pick(f, lastNames)
}

func (f *faker) email(name string) string {
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return local + "@" + pick(f, []string{"example.com", "mail.test", "demo.net"})
}

func (f *faker) sentence(words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = pick(f, loremWords)
	}
	s := strings.Join(parts, " ") + "."
	return strings.ToUpper(s[:1]) + s[1:]
}

func (f *faker) streetAddress() string {
	return fmt.Sprintf("%s %d", pick(f, streetNames), f.intn(100, 9999))
}

func (f *faker) phone() string {
	return fmt.Sprintf("+1 %03d %03d %04d", f.intn(200, 999), f.intn(100, 999), f.intn(0, 9999))
}

// recent 过去 days 天内的随机时间
func (f *faker) recent(days int) time.Time {
	span := time.Duration(days) * 24 * time.Hour
	return time.Now().Add(-time.Duration(f.r.Int63n(int64(span))))
}

// future 未来 days 天内的随机时间
func (f *faker) future(days int) time.Time {
	span := time.Duration(days) * 24 * time.Hour
	return time.Now().Add(time.Duration(f.r.Int63n(int64(span))))
}

// tagSubset 从标签池中取 0–2 个不重复标签
func (f *faker) tagSubset() []string {
	pool := append([]string(nil), conversationTagPool...)
	f.r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool[:f.intn(0, 2)]
}

// ensureSeeded 首次访问时生成实例的全部数据（调用方持锁）
func (m *MemoryAPI) ensureSeeded(inst entity.Instance) {
	if _, ok := m.conversations[inst.ID]; ok {
		return
	}
	m.seedAgents(inst.ID)
	m.seedTeams(inst.ID)
	m.seedInboxes(inst.ID)
	m.seedProperties(inst.ID)
	m.seedConversations(inst)
	m.seedTasks(inst)
}

func (m *MemoryAPI) seedAgents(instanceID int64) {
	f := newFaker(instanceID * 200)
	n := f.intn(5, 15)
	agents := make([]entity.Agent, n)
	for i := range agents {
		name := f.fullName()
		agents[i] = entity.Agent{
			ID:        int64(i + 1),
			Name:      name,
			Email:     f.email(name),
			AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=agent%d-%d", instanceID, i+1),
			IsActive:  f.boolean(),
		}
	}
	m.agents[instanceID] = agents
}

func (m *MemoryAPI) seedTeams(instanceID int64) {
	agents := m.agents[instanceID]
	if len(agents) < 5 {
		m.teams[instanceID] = nil
		return
	}
	m.teams[instanceID] = []entity.Team{
		{ID: 1, InstanceID: instanceID, Name: "Equipo de Ventas", AgentIDs: []int64{agents[0].ID, agents[1].ID}},
		{ID: 2, InstanceID: instanceID, Name: "Soporte Nivel 1", AgentIDs: []int64{agents[2].ID, agents[3].ID}},
		{ID: 3, InstanceID: instanceID, Name: "Soporte Nivel 2", AgentIDs: []int64{agents[1].ID, agents[3].ID, agents[4].ID}},
	}
}

func (m *MemoryAPI) seedInboxes(instanceID int64) {
	f := newFaker(instanceID * 250)
	teams := m.teams[instanceID]
	teamID := func(i int) int64 {
		if i < len(teams) {
			return teams[i].ID
		}
		return 0
	}
	m.inboxes[instanceID] = []entity.Inbox{
		{
			ID: 1, InstanceID: instanceID, Name: "Ventas WhatsApp",
			ChannelType: "whatsapp", PhoneNumber: f.phone(),
			Folders: []entity.Folder{
				{ID: 1, Name: "Nuevos Leads", TeamID: teamID(0)},
				{ID: 2, Name: "Seguimiento", TeamID: teamID(0)},
			},
		},
		{
			ID: 2, InstanceID: instanceID, Name: "Soporte WhatsApp",
			ChannelType: "whatsapp", PhoneNumber: f.phone(),
			Folders: []entity.Folder{
				{ID: 3, Name: "Consultas Generales", TeamID: teamID(1)},
				{ID: 4, Name: "Problemas Técnicos", TeamID: teamID(2)},
				{ID: 5, Name: "Facturación", TeamID: teamID(1)},
			},
		},
	}
}

func (m *MemoryAPI) seedProperties(instanceID int64) {
	f := newFaker(instanceID * 1000)
	properties := make([]entity.Property, 20)
	for i := range properties {
		properties[i] = entity.Property{
			ID:        fmt.Sprintf("prop_%d_%d", instanceID, i),
			Address:   fmt.Sprintf("%s, %s", f.streetAddress(), pick(f, cityNames)),
			Price:     float64(f.intn(150000, 1200000)),
			Bedrooms:  f.intn(1, 5),
			Bathrooms: f.intn(1, 4),
			Area:      f.intn(50, 300),
		}
	}
	m.properties[instanceID] = properties
}

func (m *MemoryAPI) industryCatalog(industry entity.Industry) IndustryCatalog {
	if cfg, ok := m.catalog[industry]; ok {
		return cfg
	}
	return m.catalog[entity.IndustryServices]
}

func (m *MemoryAPI) seedConversations(inst entity.Instance) {
	f := newFaker(inst.ID * 300)
	agents := m.agents[inst.ID]
	inboxes := m.inboxes[inst.ID]
	cfg := m.industryCatalog(inst.Industry)

	n := f.intn(25, 40)
	conversations := make([]entity.Conversation, n)
	for i := range conversations {
		inbox := pick(f, inboxes)
		folder := pick(f, inbox.Folders)

		conv := entity.Conversation{
			ID: 100 + int64(i),
			Contact: entity.ContactRef{
				ID:        200 + int64(i),
				Name:      f.fullName(),
				AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=contact%d-%d", inst.ID, i+1),
			},
			LastMessage:     f.sentence(8),
			Status:          pick(f, []entity.ConversationStatus{entity.ConversationOpen, entity.ConversationResolved, entity.ConversationPending}),
			LastActivityAt:  f.recent(14),
			PipelineStage:   pick(f, cfg.PipelineStages).ID,
			Tags:            f.tagSubset(),
			AssignedAgentID: pick(f, agents).ID,
			InboxID:         inbox.ID,
			FolderID:        folder.ID,
		}

		switch inst.Industry {
		case entity.IndustryServices:
			conv.DealValue = float64(f.intn(50, 5000))
			conv.LastMessage = pick(f, []string{
				"Quisiera una cotización para el servicio de consultoría.",
				"¿Podemos agendar una demo de su producto?",
				"Tengo una pregunta sobre los planes de precios.",
			})
		case entity.IndustryRealEstate:
			property := pick(f, m.properties[inst.ID])
			conv.Contact.Name = "Comprador: " + conv.Contact.Name
			conv.CustomFields = map[string]any{
				"propertyId":      property.ID,
				"propertyAddress": property.Address,
				"price":           property.Price,
			}
			conv.LastMessage = fmt.Sprintf("Me gustaría agendar una visita para la propiedad en %s.",
				strings.SplitN(property.Address, ",", 2)[0])
		case entity.IndustryHealth:
			service := pick(f, []string{"Consulta General", "Examen de Sangre", "Radiografía", "Control Dental"})
			conv.Contact.Name = "Paciente: " + conv.Contact.Name
			conv.CustomFields = map[string]any{
				"patientId":        fmt.Sprintf("P%d-%d", inst.ID, f.intn(1000, 9999)),
				"serviceRequested": service,
				"appointmentDate":  f.future(30).Format(time.RFC3339),
			}
			conv.LastMessage = fmt.Sprintf("Hola, necesito confirmar mi cita para %s.", service)
		case entity.IndustryMunicipality:
			department := pick(f, []string{"Vialidad", "Cultura", "Seguridad", "Obras Públicas"})
			caseID := fmt.Sprintf("MUN%d-%d", inst.ID, f.intn(1000, 9999))
			conv.Contact.Name = "Ciudadano: " + conv.Contact.Name
			conv.CustomFields = map[string]any{
				"caseId":     caseID,
				"department": department,
				"address":    f.streetAddress(),
			}
			conv.LastMessage = fmt.Sprintf("Reporte N° %s sobre un problema de %s.", caseID, department)
		}

		m.seedMessages(inst.ID, conv.ID, conv.Contact)
		conversations[i] = conv
	}
	m.conversations[inst.ID] = conversations
}

func (m *MemoryAPI) seedMessages(instanceID, conversationID int64, contact entity.ContactRef) {
	if _, ok := m.messages[conversationID]; ok {
		return
	}
	f := newFaker(instanceID*400 + conversationID)
	agents := m.agents[instanceID]

	messages := make([]entity.Message, 12)
	for i := range messages {
		sender := entity.Sender{Type: entity.SenderUser, Name: contact.Name, AvatarURL: contact.AvatarURL}
		if f.boolean() {
			sender = entity.Sender{
				Type:      entity.SenderAgent,
				Name:      pick(f, agents).Name,
				AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=agent%d-%d", instanceID, f.intn(1, 8)),
			}
		}
		messages[i] = entity.Message{
			ID:        300 + int64(i),
			Content:   f.sentence(6),
			CreatedAt: f.recent(1),
			Sender:    sender,
		}
	}
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	m.messages[conversationID] = messages
}

func (m *MemoryAPI) seedTasks(inst entity.Instance) {
	f := newFaker(inst.ID * 900)
	cfg := m.industryCatalog(inst.Industry)
	agents := m.agents[inst.ID]

	var tasks []entity.Task
	for _, conv := range m.conversations[inst.ID] {
		if !f.boolean() {
			continue
		}
		count := f.intn(1, 3)
		for i := 0; i < count; i++ {
			task := entity.Task{
				ID:              int64(len(tasks) + 1),
				ConversationID:  conv.ID,
				ContactName:     conv.Contact.Name,
				Content:         f.sentence(5),
				DueDate:         f.future(7),
				Priority:        pick(f, []entity.TaskPriority{entity.PriorityLow, entity.PriorityMedium, entity.PriorityHigh}),
				IsCompleted:     f.boolean(),
				AssignedAgentID: pick(f, agents).ID,
				Type:            pick(f, cfg.TaskTypes),
			}
			if f.boolean() {
				task.Recurrence = pick(f, []entity.TaskRecurrence{entity.RecurrenceDaily, entity.RecurrenceWeekly, entity.RecurrenceMonthly})
			}
			tasks = append(tasks, task)
		}
	}
	m.tasks[inst.ID] = tasks
}

// ensureContacts 从会话派生联系人（仅首次）：按联系人 id 去重、
// 去除行业名称前缀、标签取并集。之后联系人作为独立集合演化。
func (m *MemoryAPI) ensureContacts(instanceID int64) {
	if _, ok := m.contacts[instanceID]; ok {
		return
	}
	var contacts []entity.Contact
	index := make(map[int64]int)
	for _, conv := range m.conversations[instanceID] {
		i, ok := index[conv.Contact.ID]
		if !ok {
			contacts = append(contacts, entity.Contact{
				ID:        conv.Contact.ID,
				Name:      stripContactPrefix(conv.Contact.Name),
				AvatarURL: conv.Contact.AvatarURL,
				Tags:      []string{},
			})
			i = len(contacts) - 1
			index[conv.Contact.ID] = i
		}
		contacts[i] = contacts[i].MergeTags(conv.Tags)
	}
	m.contacts[instanceID] = contacts
}

var contactPrefixes = []string{"Comprador: ", "Paciente: ", "Ciudadano: "}

func stripContactPrefix(name string) string {
	for _, p := range contactPrefixes {
		if strings.HasPrefix(name, p) {
			return strings.TrimPrefix(name, p)
		}
	}
	return name
}
